// Package audio implements the always-open microphone input stream with
// RMS-based silence detection and an auto-stop latch, so a dictation that
// trails off (or runs too long) ends without the user releasing the
// hotkey.
package audio

import (
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/Mizzlr/whisper-typer/internal/logger"
)

// Config tunes the capture stream and silence/auto-stop detection.
type Config struct {
	SampleRate float64
	Channels   int
	ChunkSize  int
	// MaxBufferDuration caps the buffer at MaxBufferDuration × SampleRate
	// samples; overflow forces an auto-stop.
	MaxBufferDuration time.Duration
	// MaxRecordingDuration latches auto-stop even while speech continues.
	MaxRecordingDuration time.Duration
	MinSpeechDuration    time.Duration
	SilenceThreshold     float64
	SilenceDuration      time.Duration
}

// Capturer wraps a single portaudio input stream, armed and disarmed by
// the dictation orchestrator. A single mutex guards the armed flag, the
// buffer, the silence tracker, and the auto-stop latch.
type Capturer struct {
	cfg    Config
	log    *logger.Logger
	stream *portaudio.Stream

	mu             sync.Mutex
	armed          bool
	buffer         []float32
	maxSamples     int
	silenceStart   time.Time
	recordingStart time.Time
	autoStop       bool
}

// New opens the input stream immediately and holds it for the caller's
// process lifetime; cold-start latency would otherwise dominate every
// recording.
func New(cfg Config, log *logger.Logger) (*Capturer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	maxBuffer := cfg.MaxBufferDuration
	if maxBuffer <= 0 {
		maxBuffer = cfg.MaxRecordingDuration
	}
	c := &Capturer{
		cfg:        cfg,
		log:        log,
		maxSamples: int(maxBuffer.Seconds() * cfg.SampleRate),
	}

	stream, err := portaudio.OpenDefaultStream(
		cfg.Channels, 0, cfg.SampleRate, cfg.ChunkSize, c.callback,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	c.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}

	return c, nil
}

// Close stops and releases the underlying stream.
func (c *Capturer) Close() error {
	if c.stream == nil {
		return nil
	}
	err := c.stream.Close()
	portaudio.Terminate()
	return err
}

// callback runs on portaudio's audio thread for every chunk and holds
// the mutex for at most one chunk of work.
func (c *Capturer) callback(in []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed {
		return
	}

	remaining := c.maxSamples - len(c.buffer)
	if remaining <= 0 {
		c.armed = false
		c.autoStop = true
		return
	}
	if remaining < len(in) {
		in = in[:remaining]
	}
	c.buffer = append(c.buffer, in...)

	elapsedRecording := time.Since(c.recordingStart)
	if elapsedRecording >= c.cfg.MaxRecordingDuration {
		c.autoStop = true
		return
	}
	if elapsedRecording < c.cfg.MinSpeechDuration {
		return
	}

	rms := rmsEnergy(in)
	if rms < c.cfg.SilenceThreshold {
		if c.silenceStart.IsZero() {
			c.silenceStart = time.Now()
		} else if time.Since(c.silenceStart) >= c.cfg.SilenceDuration {
			c.autoStop = true
		}
	} else {
		c.silenceStart = time.Time{}
	}
}

// Start clears the buffer and silence tracker, arms capture.
func (c *Capturer) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffer = c.buffer[:0]
	c.silenceStart = time.Time{}
	c.recordingStart = time.Now()
	c.autoStop = false
	c.armed = true
}

// Stop disarms and returns the buffer, transferring ownership to the
// caller (the backing array is not reused by the next Start).
func (c *Capturer) Stop() []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = false
	buf := c.buffer
	c.buffer = nil
	return buf
}

// ShouldAutoStop reports whether the capture callback has latched an
// auto-stop condition (silence or max-duration) since the last Start.
func (c *Capturer) ShouldAutoStop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoStop
}

// IsRecording reports whether the capturer is currently armed.
func (c *Capturer) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// IsSilent reports whether the whole of samples is below threshold RMS,
// used by the orchestrator to skip transcription of a silent buffer.
func IsSilent(samples []float32, threshold float64) bool {
	return rmsEnergy(samples) < threshold
}

func rmsEnergy(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		sumSq += float64(s) * float64(s)
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}
