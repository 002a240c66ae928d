package tts

import (
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Mizzlr/whisper-typer/internal/logger"
	"github.com/Mizzlr/whisper-typer/internal/voicegate"
)

// Config points at the on-disk artifacts loaded once at startup.
type Config struct {
	ModelPath      string
	VoicesPath     string
	VocabPath      string
	OnnxLibPath    string
	DefaultVoice   string
	Speed          float64
	IntraOpThreads int // 0 defaults to 4
}

// Result is the outcome of one Speak call.
type Result struct {
	GenerateMs int64
	PlaybackMs int64
	Cancelled  bool
	TextSpoken string
}

// Synthesizer loads the vocabulary, voice archive, and ONNX model session
// once and serves Speak calls one at a time for the process lifetime.
type Synthesizer struct {
	log *logger.Logger

	vocab  *Vocabulary
	voices map[string]*Voice

	session  *ort.AdvancedSession
	tokensIn *ort.Tensor[int64]
	styleIn  *ort.Tensor[float32]
	speedIn  *ort.Tensor[float32]
	audioOut *ort.Tensor[float32]

	player *player
	gate   *voicegate.Gate

	speakMu  sync.Mutex // only one Speak runs at a time
	cancel   atomic.Bool
	speaking atomic.Bool

	mu    sync.Mutex
	voice string
	speed float64
}

// sentenceSplit matches ". ! ?" followed by whitespace. The delimiter and
// trailing whitespace stay attached to the preceding sentence so that
// concatenating the pieces reconstructs the input.
var sentenceSplit = regexp.MustCompile(`([.!?])(\s+)`)

// Load reads the vocabulary and voice archive, creates the ONNX session,
// and opens the default audio output stream, held for the process
// lifetime.
func Load(cfg Config, gate *voicegate.Gate, log *logger.Logger) (*Synthesizer, error) {
	vocab, err := LoadVocabulary(cfg.VocabPath)
	if err != nil {
		return nil, err
	}
	voices, err := LoadVoiceArchive(cfg.VoicesPath)
	if err != nil {
		return nil, err
	}
	if _, ok := voices[cfg.DefaultVoice]; !ok {
		return nil, fmt.Errorf("tts: default voice %q not found in archive", cfg.DefaultVoice)
	}

	ort.SetSharedLibraryPath(cfg.OnnxLibPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("tts: onnx init: %w", err)
	}

	const maxTokens = styleRows
	tokensIn, err := ort.NewEmptyTensor[int64](ort.NewShape(1, maxTokens))
	if err != nil {
		return nil, err
	}
	styleIn, err := ort.NewEmptyTensor[float32](ort.NewShape(1, styleDim))
	if err != nil {
		return nil, err
	}
	speedIn, err := ort.NewEmptyTensor[float32](ort.NewShape(1))
	if err != nil {
		return nil, err
	}
	// Generously sized — real output length is read back from the tensor's
	// data slice, which onnxruntime_go sizes to the model's actual run.
	audioOut, err := ort.NewEmptyTensor[float32](ort.NewShape(1, maxTokens*600))
	if err != nil {
		return nil, err
	}

	inInfo, outInfo, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("tts: inspect model: %w", err)
	}
	if len(inInfo) < 3 || len(outInfo) < 1 {
		return nil, fmt.Errorf("tts: model %q has unexpected input/output arity", cfg.ModelPath)
	}

	threads := cfg.IntraOpThreads
	if threads <= 0 {
		threads = 4
	}
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("tts: session options: %w", err)
	}
	defer opts.Destroy()
	if err := opts.SetIntraOpNumThreads(threads); err != nil {
		return nil, fmt.Errorf("tts: set intra-op threads: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{inInfo[0].Name, inInfo[1].Name, inInfo[2].Name},
		[]string{outInfo[0].Name},
		[]ort.Value{tokensIn, styleIn, speedIn},
		[]ort.Value{audioOut},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("tts: create session: %w", err)
	}

	pl, err := newPlayer(log)
	if err != nil {
		session.Destroy()
		return nil, fmt.Errorf("tts: audio output stream: %w", err)
	}

	speed := cfg.Speed
	if speed <= 0 {
		speed = 1.0
	}

	return &Synthesizer{
		log:      log,
		vocab:    vocab,
		voices:   voices,
		session:  session,
		tokensIn: tokensIn,
		styleIn:  styleIn,
		speedIn:  speedIn,
		audioOut: audioOut,
		player:   pl,
		gate:     gate,
		voice:    cfg.DefaultVoice,
		speed:    speed,
	}, nil
}

// SetVoice switches the active voice if known.
func (s *Synthesizer) SetVoice(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.voices[name]; !ok {
		return fmt.Errorf("tts: unknown voice %q", name)
	}
	s.voice = name
	return nil
}

// Voice returns the active voice name.
func (s *Synthesizer) Voice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice
}

// IsSpeaking reports whether a Speak call is currently rendering or
// playing audio.
func (s *Synthesizer) IsSpeaking() bool { return s.speaking.Load() }

// ClearCancel resets the cancel flag without stopping playback. The queue
// calls it before starting a dequeued job: its generation counter already
// decided the job should run, so any stale per-engine cancel is void.
func (s *Synthesizer) ClearCancel() { s.cancel.Store(false) }

// Cancel raises the cancel flag and stops any active playback.
func (s *Synthesizer) Cancel() {
	s.cancel.Store(true)
	s.player.stop()
}

// Interrupt is a synonym for Cancel used between queue items.
func (s *Synthesizer) Interrupt() { s.Cancel() }

// Speak renders and plays text, sentence by sentence, checking the cancel
// flag before phonemizing each one and again before playback.
func (s *Synthesizer) Speak(text string) Result {
	s.speakMu.Lock()
	defer s.speakMu.Unlock()

	s.cancel.Store(false)
	s.speaking.Store(true)
	defer s.speaking.Store(false)

	sentences := SplitSentences(text)

	s.mu.Lock()
	voice := s.voices[s.voice]
	speed := s.speed
	s.mu.Unlock()

	var generateMs, playbackMs int64
	for _, sentence := range sentences {
		if s.cancel.Load() {
			return Result{Cancelled: true, TextSpoken: text, GenerateMs: generateMs, PlaybackMs: playbackMs}
		}

		genStart := time.Now()
		samples, err := s.inferSentence(sentence, voice, speed)
		generateMs += time.Since(genStart).Milliseconds()
		if err != nil {
			s.log.Warn("inference failed for sentence %q: %v", truncate(sentence, 40), err)
			continue
		}
		s.log.Debug("rendered %q in %dms (%d samples)", truncate(sentence, 40), time.Since(genStart).Milliseconds(), len(samples))

		if s.cancel.Load() {
			return Result{Cancelled: true, TextSpoken: text, GenerateMs: generateMs, PlaybackMs: playbackMs}
		}

		// Read the gate immediately before playback; if it is closed the
		// user is dictating, so wait for the notifier instead of talking
		// over them.
		s.gate.Wait()

		playStart := time.Now()
		cutShort := s.player.play(samples, s.cancel.Load)
		playbackMs += time.Since(playStart).Milliseconds()
		if cutShort {
			return Result{Cancelled: true, TextSpoken: text, GenerateMs: generateMs, PlaybackMs: playbackMs}
		}
	}

	return Result{TextSpoken: text, GenerateMs: generateMs, PlaybackMs: playbackMs}
}

// inferSentence phonemizes, tokenizes (wrapping with start/end pad 0),
// clamps to 510 tokens, selects the voice row, and runs one ONNX
// inference pass.
func (s *Synthesizer) inferSentence(sentence string, voice *Voice, speed float64) ([]float32, error) {
	phonemes := phonemize(sentence)
	tokens := s.vocab.TokensFor(phonemes)

	padded := make([]int64, 0, len(tokens)+2)
	padded = append(padded, 0)
	padded = append(padded, tokens...)
	padded = append(padded, 0)
	if len(padded) > styleRows {
		padded = padded[:styleRows]
	}

	row := voice.Row(len(padded))

	tIn := s.tokensIn.GetData()
	for i := range tIn {
		tIn[i] = 0
	}
	copy(tIn, padded)

	sIn := s.styleIn.GetData()
	copy(sIn, row)

	s.speedIn.GetData()[0] = float32(speed)

	if err := s.session.Run(); err != nil {
		return nil, err
	}

	out := s.audioOut.GetData()
	samples := make([]float32, len(out))
	copy(samples, out)
	return samples, nil
}

// SplitSentences splits text on sentence boundaries (". ! ?" followed by
// whitespace), keeping delimiter and trailing whitespace attached to the
// preceding sentence so concatenation round-trips.
func SplitSentences(text string) []string {
	if text == "" {
		return nil
	}
	locs := sentenceSplit.FindAllStringIndex(text, -1)
	if locs == nil {
		return []string{text}
	}

	var out []string
	start := 0
	for _, loc := range locs {
		out = append(out, text[start:loc[1]])
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
