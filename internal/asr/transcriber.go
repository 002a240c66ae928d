// Package asr wraps a whisper.cpp-compatible CLI binary to provide
// buffer-in, text-out transcription: each utterance is written to a
// temporary WAV file and decoded greedily, single-segment, English, with
// timestamps disabled.
package asr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Mizzlr/whisper-typer/internal/domain"
	"github.com/Mizzlr/whisper-typer/internal/logger"
)

// searchNames are filename patterns tried in each search directory, the
// configured model first, then progressively smaller fallbacks.
var searchNames = []string{
	"ggml-%s.bin",
	"ggml-distil-large-v3.bin",
	"ggml-large-v3-turbo.bin",
	"ggml-large-v3.bin",
	"ggml-base.bin",
}

// FindModel searches the current directory, the user cache directory, and
// a fallback well-known directory for a named model file.
func FindModel(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".cache", "whisper"), filepath.Join(home, "whisper-typer"))
	}

	for _, dir := range dirs {
		for _, pattern := range searchNames {
			candidate := filepath.Join(dir, fmt.Sprintf(pattern, name))
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}
	return "", domain.ErrModelNotFound
}

// Result is the outcome of one Transcribe call.
type Result struct {
	Text      string
	LatencyMs int64
}

// Transcriber invokes a whisper-cli-compatible binary against a WAV file
// built from an in-memory float32 buffer. One Transcriber is constructed
// once at startup and reused for the process lifetime.
type Transcriber struct {
	bin        string
	modelPath  string
	sampleRate int
	log        *logger.Logger
}

// Load resolves the model path and verifies the CLI binary is on PATH.
// Both failures are fatal at startup: without them no utterance can ever
// be transcribed.
func Load(bin, modelName string, sampleRate int, log *logger.Logger) (*Transcriber, error) {
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("asr: whisper binary %q not found in PATH: %w", bin, err)
	}
	modelPath, err := FindModel(modelName)
	if err != nil {
		return nil, fmt.Errorf("asr: %w (searched for %q)", err, modelName)
	}
	return &Transcriber{bin: bin, modelPath: modelPath, sampleRate: sampleRate, log: log}, nil
}

// Transcribe converts buffered mono float32 samples to text. initialPrompt,
// when non-empty, biases decoding via the binary's --prompt flag. Decoding
// is greedy, single-segment, English, with timestamps disabled — the CLI
// binary is invoked with flags enforcing exactly that. Never panics;
// returns an error on any failure.
func (t *Transcriber) Transcribe(samples []float32, initialPrompt string) (Result, error) {
	start := time.Now()

	tmpDir, err := os.MkdirTemp("", "whisper-typer-asr-*")
	if err != nil {
		return Result{}, fmt.Errorf("asr: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	wavPath := filepath.Join(tmpDir, "utterance.wav")
	if err := writeWAV(wavPath, samples, t.sampleRate); err != nil {
		return Result{}, fmt.Errorf("asr: write wav: %w", err)
	}

	args := []string{
		"--model", t.modelPath,
		"--file", wavPath,
		"--language", "en",
		"--no-timestamps",
		"--best-of", "1",
		"--greedy",
	}
	if initialPrompt != "" {
		args = append(args, "--prompt", initialPrompt)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(t.bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.log.Warn("transcribe failed: %v (%s)", err, stderr.String())
		return Result{}, fmt.Errorf("asr: transcribe: %w", err)
	}

	text := joinSegments(stdout.String())
	return Result{Text: text, LatencyMs: time.Since(start).Milliseconds()}, nil
}

// joinSegments concatenates the CLI's stdout lines (one decoded segment
// per line) with single spaces, trimming each.
func joinSegments(out string) string {
	lines := strings.Split(out, "\n")
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " ")
}

// writeWAV writes a minimal 16-bit PCM mono WAV file from float32
// samples.
func writeWAV(path string, samples []float32, sampleRate int) error {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		v := s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		pcm[i] = int16(v * 32767)
	}

	dataSize := len(pcm) * 2
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	binary.Write(&buf, binary.LittleEndian, pcm)

	_, err = f.Write(buf.Bytes())
	return err
}
