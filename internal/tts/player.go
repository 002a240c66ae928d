package tts

import (
	"bytes"
	"encoding/binary"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/Mizzlr/whisper-typer/internal/logger"
)

// sampleRate is the neural vocoder's output rate.
const sampleRate = 24000

// pollInterval is how often playback checks the cancel flag; at worst
// that much audio plays after a cancel.
const pollInterval = 50 * time.Millisecond

// player wraps a single oto.Context held for the process lifetime and
// plays raw float32 PCM (the model's direct output), polling a
// caller-supplied cancel check during playback.
type player struct {
	ctx *oto.Context
	log *logger.Logger

	mu     sync.Mutex
	active *oto.Player
}

func newPlayer(log *logger.Logger) (*player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready
	return &player{ctx: ctx, log: log}, nil
}

// play renders float32 PCM samples and blocks until playback completes or
// cancelled returns true. It returns true if playback was cut short.
func (p *player) play(samples []float32, cancelled func() bool) bool {
	pcm := floatToPCM16(samples)

	op := p.ctx.NewPlayer(bytes.NewReader(pcm))
	p.mu.Lock()
	p.active = op
	p.mu.Unlock()

	op.Play()
	defer func() {
		p.mu.Lock()
		p.active = nil
		p.mu.Unlock()
		op.Close()
	}()

	for op.IsPlaying() {
		if cancelled() {
			op.Pause()
			return true
		}
		time.Sleep(pollInterval)
	}
	return false
}

// stop interrupts whatever is currently playing, if anything.
func (p *player) stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()
	if active != nil {
		active.Pause()
	}
}

func floatToPCM16(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(s*32767)))
	}
	return buf
}
