// Command whisper-typer is the always-on dictation and voice-notification
// daemon. It owns the hotkey-gated dictation state machine, the TTS job
// queue, and the local control HTTP API, all coordinated through a shared
// voice gate so dictation and speech never talk over each other.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Mizzlr/whisper-typer/internal/asr"
	"github.com/Mizzlr/whisper-typer/internal/audio"
	"github.com/Mizzlr/whisper-typer/internal/config"
	"github.com/Mizzlr/whisper-typer/internal/corrector"
	"github.com/Mizzlr/whisper-typer/internal/dictation"
	"github.com/Mizzlr/whisper-typer/internal/history"
	"github.com/Mizzlr/whisper-typer/internal/hotkey"
	"github.com/Mizzlr/whisper-typer/internal/httpapi"
	"github.com/Mizzlr/whisper-typer/internal/inject"
	"github.com/Mizzlr/whisper-typer/internal/logger"
	"github.com/Mizzlr/whisper-typer/internal/reminder"
	"github.com/Mizzlr/whisper-typer/internal/statecache"
	"github.com/Mizzlr/whisper-typer/internal/summarizer"
	"github.com/Mizzlr/whisper-typer/internal/tts"
	"github.com/Mizzlr/whisper-typer/internal/ttsqueue"
	"github.com/Mizzlr/whisper-typer/internal/voicegate"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to config.yaml (searches ./config.yaml, ~/.config/whisper-typer/config.yaml, /etc/whisper-typer/config.yaml if unset)")
	mode := flag.String("mode", "corrected", "output mode: raw, corrected, or both")
	noCorrector := flag.Bool("no-corrector", false, "disable the LLM corrector even if ollama is enabled in config")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	logFile := flag.String("log-file", ".whisper-typer-logs/daemon.log", "file to write logs to (use \"stderr\" to log to console)")
	flag.Parse()

	switch dictation.Mode(*mode) {
	case dictation.ModeRaw, dictation.ModeCorrected, dictation.ModeBoth:
	default:
		fmt.Fprintf(os.Stderr, "error: --mode must be one of raw, corrected, both (got %q)\n", *mode)
		os.Exit(1)
	}
	// --no-corrector implies raw output.
	if *noCorrector {
		*mode = string(dictation.ModeRaw)
	}

	logLevel := logger.LevelNormal
	if *verbose {
		logLevel = logger.LevelVerbose
	}

	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		dir := filepath.Dir(*logFile)
		if dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", *logFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// One SetOutput moves the whole logger family and the stdlib log
	// package (what portaudio/onnxruntime/evdev write to) to the log file.
	log := logger.New(logLevel, os.Stderr)
	log.SetOutput(logOut)
	cfg := config.Load(*configPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, dictation.Mode(*mode), !*noCorrector && cfg.Ollama.Enabled, log); err != nil {
		log.Error("fatal: %v", err)
		os.Exit(1)
	}
}

// secondsToDuration converts a config value expressed in fractional
// seconds to a time.Duration.
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func run(ctx context.Context, cfg *config.Config, mode dictation.Mode, correctorEnabled bool, log *logger.Logger) error {
	gate := voicegate.New()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	transcriptionHistory, err := history.NewStore(filepath.Join(home, ".whisper-typer-history"), "")
	if err != nil {
		return fmt.Errorf("transcription history store: %w", err)
	}
	ttsHistory, err := history.NewStore(filepath.Join(home, ".code-speaker-history"), "-tts")
	if err != nil {
		return fmt.Errorf("tts history store: %w", err)
	}

	statePath, err := statecache.DefaultPath()
	if err != nil {
		return fmt.Errorf("state cache path: %w", err)
	}
	state, err := statecache.New(statePath)
	if err != nil {
		return fmt.Errorf("state cache: %w", err)
	}

	hotkeyMon := hotkey.New(cfg.Hotkey.Combo, cfg.Hotkey.AltCombos, log.Named("hotkey"))

	capturer, err := audio.New(audio.Config{
		SampleRate:           float64(cfg.Audio.SampleRate),
		Channels:             cfg.Audio.Channels,
		ChunkSize:            cfg.Audio.ChunkSize,
		MaxBufferDuration:    secondsToDuration(cfg.Recording.MaxDuration),
		MaxRecordingDuration: secondsToDuration(cfg.Silence.MaxRecordingDuration),
		MinSpeechDuration:    secondsToDuration(cfg.Silence.MinSpeechDuration),
		SilenceThreshold:     cfg.Silence.Threshold,
		SilenceDuration:      secondsToDuration(cfg.Silence.Duration),
	}, log.Named("audio"))
	if err != nil {
		return fmt.Errorf("audio capturer: %w", err)
	}

	transcriber, err := asr.Load("whisper-cli", cfg.Whisper.Model, cfg.Audio.SampleRate, log.Named("asr"))
	if err != nil {
		return fmt.Errorf("asr transcriber: %w", err)
	}

	var corr *corrector.Corrector
	if correctorEnabled {
		corr, err = corrector.New(cfg.Ollama.Host, cfg.Ollama.Model, log.Named("corrector"))
		if err != nil {
			log.Warn("corrector init failed, running uncorrected: %v", err)
			correctorEnabled = false
		}
	}

	injector := inject.New(cfg.Typer.Backend, log.Named("inject"))

	// Seed the cache with this invocation's flags so later mutations from
	// the collaborator start from what the daemon is actually running with.
	if err := state.SetMode(string(mode)); err != nil {
		log.Warn("state cache: could not persist mode: %v", err)
	}
	if err := state.SetCorrectorEnabled(correctorEnabled); err != nil {
		log.Warn("state cache: could not persist corrector flag: %v", err)
	}

	ttsEnabled := *cfg.TTS.Enabled
	cancelURL := ""
	if ttsEnabled {
		cancelURL = fmt.Sprintf("http://127.0.0.1:%d/cancel", cfg.TTS.APIPort)
	}

	dictationOrch := dictation.New(
		dictation.Config{
			Mode:             mode,
			CorrectorEnabled: correctorEnabled,
			SkipThreshold:    3,
			SilenceThreshold: cfg.Silence.Threshold,
			TTSCancelURL:     cancelURL,
		},
		hotkeyMon, capturer, transcriber, corr, injector, transcriptionHistory, gate, state, log.Named("dictation"),
	)

	errCh := make(chan error, 4)

	if ttsEnabled {
		synth, err := tts.Load(tts.Config{
			ModelPath:    cfg.TTS.ModelPath,
			VoicesPath:   cfg.TTS.VoicesPath,
			VocabPath:    cfg.TTS.TokenizerPath,
			OnnxLibPath:  cfg.TTS.OnnxLibPath,
			DefaultVoice: cfg.TTS.Voice,
			Speed:        cfg.TTS.Speed,
		}, gate, log.Named("tts"))
		if err != nil {
			return fmt.Errorf("tts synthesizer: %w", err)
		}

		summ, err := summarizer.New(cfg.Ollama.Host, cfg.Ollama.Model, log.Named("summarizer"))
		if err != nil {
			return fmt.Errorf("summarizer: %w", err)
		}

		rem := reminder.New(time.Duration(cfg.TTS.ReminderInterval)*time.Second, synth.Cancel, log.Named("reminder"))
		engine := ttsqueue.New(synth, summ, rem, ttsHistory, log.Named("ttsqueue"))
		api := httpapi.New(engine, cfg.TTS.APIPort, log.Named("httpapi"))

		go engine.Run(ctx)
		go func() { errCh <- api.Run(ctx) }()
	} else {
		log.Info("TTS disabled in config; running dictation only")
	}

	log.Info("whisper-typer starting (mode=%s, corrector=%v, tts=%v, voice=%s)", mode, correctorEnabled, ttsEnabled, cfg.TTS.Voice)

	go func() { errCh <- hotkeyMon.Run(ctx) }()
	go dictationOrch.Run(ctx)

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}
