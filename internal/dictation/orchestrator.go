// Package dictation implements the hotkey-gated IDLE/RECORDING/PROCESSING
// state machine, gluing the hotkey monitor, audio capturer, transcriber,
// corrector, and injector together and coordinating with TTS through the
// shared voice gate. Holding the hotkey records; releasing it (or the
// capturer's silence/duration auto-stop) transcribes, optionally corrects,
// and pastes the result into the focused window.
package dictation

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Mizzlr/whisper-typer/internal/asr"
	"github.com/Mizzlr/whisper-typer/internal/audio"
	"github.com/Mizzlr/whisper-typer/internal/corrector"
	"github.com/Mizzlr/whisper-typer/internal/history"
	"github.com/Mizzlr/whisper-typer/internal/hotkey"
	"github.com/Mizzlr/whisper-typer/internal/inject"
	"github.com/Mizzlr/whisper-typer/internal/logger"
	"github.com/Mizzlr/whisper-typer/internal/statecache"
	"github.com/Mizzlr/whisper-typer/internal/voicegate"
	"gopkg.in/yaml.v3"
)

// State is one of the three dictation states.
type State int

const (
	Idle State = iota
	Recording
	Processing
)

// autoStopPollInterval is how often the run loop checks the capturer's
// auto-stop latch while recording.
const autoStopPollInterval = 100 * time.Millisecond

// hallucinationBlacklist holds phrases Whisper commonly invents on
// near-silent input; an exact (lowercased, trimmed) match drops the whole
// transcription.
var hallucinationBlacklist = map[string]struct{}{
	"thank you":            {},
	"thank you.":           {},
	"thanks":               {},
	"thanks.":              {},
	"thanks for watching":  {},
	"thanks for watching.": {},
	"subscribe":            {},
	"like and subscribe":   {},
	"you":                  {},
	"bye":                  {},
	"bye.":                 {},
	"goodbye":              {},
	"goodbye.":             {},
}

// Mode selects how the final injected text is composed.
type Mode string

const (
	ModeRaw       Mode = "raw"
	ModeCorrected Mode = "corrected"
	ModeBoth      Mode = "both"
)

// Config tunes the orchestrator's non-component behavior.
type Config struct {
	Mode             Mode
	CorrectorEnabled bool
	SkipThreshold    int
	SilenceThreshold float64
	TTSCancelURL     string // e.g. http://127.0.0.1:8767/cancel
}

// Orchestrator drives the dictation state machine. State transitions are
// serial: the whole pipeline runs on a single goroutine, so a Pressed edge
// observed while PROCESSING is simply a no-op.
type Orchestrator struct {
	cfg Config
	log *logger.Logger

	hotkeyMon   *hotkey.Monitor
	capturer    *audio.Capturer
	transcriber *asr.Transcriber
	corrector   *corrector.Corrector
	injector    *inject.Injector
	history     *history.Store
	gate        *voicegate.Gate
	state       *statecache.Cache

	httpClient *http.Client

	mu     sync.RWMutex
	state_ State

	vocabMu     sync.RWMutex
	vocabulary  string
	corrections map[string]string
}

// New builds an Orchestrator. Call Run to start it.
func New(
	cfg Config,
	hotkeyMon *hotkey.Monitor,
	capturer *audio.Capturer,
	transcriber *asr.Transcriber,
	corr *corrector.Corrector,
	injector *inject.Injector,
	hist *history.Store,
	gate *voicegate.Gate,
	state *statecache.Cache,
	log *logger.Logger,
) *Orchestrator {
	o := &Orchestrator{
		cfg:         cfg,
		log:         log,
		hotkeyMon:   hotkeyMon,
		capturer:    capturer,
		transcriber: transcriber,
		corrector:   corr,
		injector:    injector,
		history:     hist,
		gate:        gate,
		state:       state,
		httpClient:  &http.Client{Timeout: 500 * time.Millisecond},
	}
	o.vocabulary = loadVocabulary(o.log)
	o.corrections = loadCorrections(o.log)
	return o
}

// State reports the current dictation state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state_
}

// Run drives the hotkey-event loop and the auto-stop poll until ctx is
// cancelled. Release of the hotkey and the capturer's auto-stop latch are
// the two triggers out of RECORDING.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(autoStopPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-o.hotkeyMon.Events():
			switch ev.Edge {
			case hotkey.Pressed:
				o.onPress(ctx)
			case hotkey.Released:
				o.onRelease()
			}
		case <-ticker.C:
			o.mu.RLock()
			recording := o.state_ == Recording
			o.mu.RUnlock()
			if recording && o.capturer.ShouldAutoStop() {
				o.log.Info("auto-stop triggered by silence/duration latch")
				o.onRelease()
			}
		}
	}
}

// onPress implements IDLE → RECORDING, a no-op outside IDLE.
func (o *Orchestrator) onPress(ctx context.Context) {
	o.mu.Lock()
	if o.state_ != Idle {
		o.mu.Unlock()
		return
	}
	o.state_ = Recording
	o.mu.Unlock()

	o.cancelTTS(ctx)
	o.gate.BeginVoiceInput()
	o.capturer.Start()
	o.log.Info("IDLE -> RECORDING")
}

// onRelease implements RECORDING → PROCESSING and runs the full processing
// pipeline, a no-op outside RECORDING.
func (o *Orchestrator) onRelease() {
	o.mu.Lock()
	if o.state_ != Recording {
		o.mu.Unlock()
		return
	}
	o.state_ = Processing
	o.mu.Unlock()
	o.log.Info("RECORDING -> PROCESSING")

	o.process()
}

// transitionToIdle is the sole PROCESSING exit path and the sole
// gate-opener, so the gate can never be left closed.
func (o *Orchestrator) transitionToIdle() {
	o.mu.Lock()
	o.state_ = Idle
	o.mu.Unlock()
	o.gate.EndVoiceInput()
	o.log.Info("-> IDLE")
}

// cancelTTS fires a best-effort, fire-and-forget HTTP cancel so TTS stops
// talking the instant the user starts speaking.
func (o *Orchestrator) cancelTTS(ctx context.Context) {
	if o.cfg.TTSCancelURL == "" {
		return
	}
	go func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.TTSCancelURL, nil)
		if err != nil {
			return
		}
		resp, err := o.httpClient.Do(req)
		if err != nil {
			return
		}
		resp.Body.Close()
	}()
}

// process drains the buffer, transcribes it, optionally corrects the
// text, injects the result, and records history.
func (o *Orchestrator) process() {
	tStart := time.Now()

	samples := o.capturer.Stop()
	if len(samples) == 0 {
		o.log.Info("no audio captured")
		o.transitionToIdle()
		return
	}
	if audio.IsSilent(samples, o.cfg.SilenceThreshold) {
		o.log.Info("Audio is silent, skipping transcription")
		o.transitionToIdle()
		return
	}
	audioSeconds := float64(len(samples)) / 16000.0

	o.reloadIfDirty()

	tWhisperStart := time.Now()
	o.vocabMu.RLock()
	prompt := o.vocabulary
	o.vocabMu.RUnlock()
	result, err := o.transcriber.Transcribe(samples, prompt)
	whisperMs := time.Since(tWhisperStart).Milliseconds()
	if err != nil {
		o.log.Warn("transcription failed: %v", err)
		o.transitionToIdle()
		return
	}
	rawText := result.Text
	if strings.TrimSpace(rawText) == "" {
		o.log.Info("empty transcription")
		o.transitionToIdle()
		return
	}

	normalized := strings.ToLower(strings.TrimSpace(rawText))
	if _, blacklisted := hallucinationBlacklist[normalized]; blacklisted {
		o.log.Info("filtered hallucination %q", rawText)
		o.transitionToIdle()
		return
	}

	var correctedText string
	var correctorMs int64
	var didCorrect bool
	wordCount := len(strings.Fields(rawText))
	if o.cfg.Mode != ModeRaw && o.cfg.CorrectorEnabled {
		if o.cfg.SkipThreshold > 0 && wordCount <= o.cfg.SkipThreshold {
			o.log.Info("skipped correction (%d words <= %d threshold)", wordCount, o.cfg.SkipThreshold)
		} else {
			o.vocabMu.RLock()
			corrections := o.corrections
			o.vocabMu.RUnlock()
			tCorrStart := time.Now()
			correctedText = o.corrector.Process(context.Background(), rawText, corrections)
			correctorMs = time.Since(tCorrStart).Milliseconds()
			didCorrect = true
		}
	}

	rawClean := stripTrailingThankYou(rawText)
	correctedClean := rawClean
	if didCorrect {
		correctedClean = stripTrailingThankYou(correctedText)
	}

	var finalText string
	switch o.cfg.Mode {
	case ModeRaw:
		finalText = fmt.Sprintf("%s ", rawClean)
	case ModeBoth:
		finalText = fmt.Sprintf("%s [%s] ", correctedClean, rawClean)
	default: // corrected
		finalText = fmt.Sprintf("%s ", correctedClean)
	}

	tTypeStart := time.Now()
	if err := o.injector.Type(finalText); err != nil {
		o.log.Warn("injection failed: %v", err)
	}
	typingMs := time.Since(tTypeStart).Milliseconds()

	totalMs := time.Since(tStart).Milliseconds()
	speedRatio := 0.0
	if totalMs > 0 {
		speedRatio = roundTo1(audioSeconds / (float64(totalMs) / 1000.0))
	}

	if err := o.state.AddTranscription(finalText); err != nil {
		o.log.Warn("state cache update failed: %v", err)
	}

	rec := history.TranscriptionRecord{
		Timestamp:    history.NowTimestamp(),
		RawText:      rawText,
		FinalText:    finalText,
		Mode:         string(o.cfg.Mode),
		WhisperMs:    whisperMs,
		TypingMs:     typingMs,
		TotalMs:      totalMs,
		AudioSeconds: audioSeconds,
		Chars:        len([]rune(finalText)),
		Words:        len(strings.Fields(finalText)),
		SpeedRatio:   speedRatio,
	}
	if didCorrect {
		rec.CorrectedText = &correctedText
		rec.CorrectorMs = &correctorMs
	}
	if err := o.history.Append(rec); err != nil {
		o.log.Warn("history append failed: %v", err)
	}

	o.log.Info("whisper=%dms corrector=%dms typing=%dms total=%dms audio=%.1fs speed=%.1fx",
		whisperMs, correctorMs, typingMs, totalMs, audioSeconds, speedRatio)

	o.transitionToIdle()
}

// reloadIfDirty runs at the start of each PROCESSING cycle: it picks up
// any mode/corrector mutation a collaborator wrote to the state cache,
// then checks the dirty flags and reloads the corresponding file.
// Non-blocking, never fails the pipeline.
func (o *Orchestrator) reloadIfDirty() {
	st := o.state.Read()
	switch m := Mode(st.Mode); m {
	case ModeRaw, ModeCorrected, ModeBoth:
		o.cfg.Mode = m
	}
	o.cfg.CorrectorEnabled = st.CorrectorEnabled && o.corrector != nil

	vocabDirty, correctionsDirty := o.state.ReloadFlags()
	if vocabDirty {
		o.vocabMu.Lock()
		o.vocabulary = loadVocabulary(o.log)
		o.vocabMu.Unlock()
	}
	if correctionsDirty {
		o.vocabMu.Lock()
		o.corrections = loadCorrections(o.log)
		o.vocabMu.Unlock()
	}
}

// stripTrailingThankYou removes a trailing "thank you" salutation, but
// only when the preceding text has more than 10 words — short utterances
// may be nothing but the salutation, and keeping the text is the safe
// failure.
func stripTrailingThankYou(text string) string {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	for _, suffix := range []string{"thank you.", "thank you!", "thank you"} {
		if strings.HasSuffix(lower, suffix) {
			preceding := strings.TrimSpace(trimmed[:len(trimmed)-len(suffix)])
			if len(strings.Fields(preceding)) > 10 {
				return preceding
			}
		}
	}
	return trimmed
}

func roundTo1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10.0
}

// loadVocabulary reads .whisper/vocabulary.txt, one term per line, skipping
// blanks and #-comments, and joins them with ", " for use as the ASR
// initial-prompt bias.
func loadVocabulary(log *logger.Logger) string {
	data, err := os.ReadFile(".whisper/vocabulary.txt")
	if err != nil {
		return ""
	}
	var terms []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if len(terms) > 0 {
		log.Info("loaded %d vocabulary terms from .whisper/vocabulary.txt", len(terms))
	}
	return strings.Join(terms, ", ")
}

// loadCorrections reads .whisper/corrections.yaml, a flat wrong: right map.
func loadCorrections(log *logger.Logger) map[string]string {
	data, err := os.ReadFile(".whisper/corrections.yaml")
	if err != nil {
		return nil
	}
	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		log.Warn("failed to parse .whisper/corrections.yaml: %v", err)
		return nil
	}
	if len(m) > 0 {
		log.Info("loaded %d corrections from .whisper/corrections.yaml", len(m))
	}
	return m
}
