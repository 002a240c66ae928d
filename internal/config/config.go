// Package config loads the daemon's YAML configuration: an explicit
// path, then ./config.yaml, then the user and system config directories,
// falling back to full defaults when nothing parses.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Hotkey holds the primary and alternate key combinations that arm dictation.
type Hotkey struct {
	Combo     []string   `yaml:"combo"`
	AltCombos [][]string `yaml:"alt_combos"`
}

func (h *Hotkey) defaults() {
	if len(h.Combo) == 0 {
		h.Combo = []string{"KEY_LEFTMETA", "KEY_LEFTALT"}
	}
}

// Audio holds the input-stream parameters.
type Audio struct {
	SampleRate  int  `yaml:"sample_rate"`
	DeviceIndex *int `yaml:"device_index"`
	Channels    int  `yaml:"channels"`
	ChunkSize   int  `yaml:"chunk_size"`
}

func (a *Audio) defaults() {
	if a.SampleRate == 0 {
		a.SampleRate = 16000
	}
	if a.Channels == 0 {
		a.Channels = 1
	}
	if a.ChunkSize == 0 {
		a.ChunkSize = 1024
	}
}

// Recording holds the absolute recording length cap.
type Recording struct {
	MaxDuration float64 `yaml:"max_duration"`
}

func (r *Recording) defaults() {
	if r.MaxDuration == 0 {
		r.MaxDuration = 120.0
	}
}

// Whisper holds ASR model selection.
type Whisper struct {
	Model  string `yaml:"model"`
	Device string `yaml:"device"`
}

func (w *Whisper) defaults() {
	if w.Model == "" {
		w.Model = "distil-whisper/distil-large-v3"
	}
	if w.Device == "" {
		w.Device = "cuda"
	}
}

// Ollama holds the corrector/summarizer backend.
type Ollama struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	Host    string `yaml:"host"`
}

func (o *Ollama) defaults() {
	if o.Model == "" {
		o.Model = "llama3.2:3b"
	}
	if o.Host == "" {
		o.Host = "http://localhost:11434"
	}
}

// Typer holds the injection backend selection.
type Typer struct {
	Backend string `yaml:"backend"`
}

func (t *Typer) defaults() {
	if t.Backend == "" {
		t.Backend = "native"
	}
}

// Feedback holds desktop-notification toggles read by the notification shim.
type Feedback struct {
	Notifications bool `yaml:"notifications"`
	Sounds        bool `yaml:"sounds"`
}

// Silence holds RMS silence-detection tuning.
type Silence struct {
	Threshold            float64 `yaml:"threshold"`
	Duration             float64 `yaml:"duration"`
	MinSpeechDuration    float64 `yaml:"min_speech_duration"`
	MaxRecordingDuration float64 `yaml:"max_recording_duration"`
}

func (s *Silence) defaults() {
	if s.Threshold == 0 {
		s.Threshold = 0.01
	}
	if s.Duration == 0 {
		s.Duration = 1.5
	}
	if s.MinSpeechDuration == 0 {
		s.MinSpeechDuration = 0.5
	}
	if s.MaxRecordingDuration == 0 {
		s.MaxRecordingDuration = 30.0
	}
}

// TTS holds synthesizer and queue tuning.
type TTS struct {
	Enabled          *bool   `yaml:"enabled"`
	Voice            string  `yaml:"voice"`
	Speed            float64 `yaml:"speed"`
	APIPort          int     `yaml:"api_port"`
	MaxDirectChars   int     `yaml:"max_direct_chars"`
	ReminderInterval int     `yaml:"reminder_interval"`
	ModelPath        string  `yaml:"model_path"`
	VoicesPath       string  `yaml:"voices_path"`
	TokenizerPath    string  `yaml:"tokenizer_path"`
	OnnxLibPath      string  `yaml:"onnx_lib_path"`
}

func (t *TTS) defaults() {
	if t.Enabled == nil {
		enabled := true
		t.Enabled = &enabled
	}
	if t.Voice == "" {
		t.Voice = "af_heart"
	}
	if t.Speed == 0 {
		t.Speed = 1.0
	}
	if t.APIPort == 0 {
		t.APIPort = 8767
	}
	if t.MaxDirectChars == 0 {
		t.MaxDirectChars = 150
	}
	if t.ReminderInterval == 0 {
		t.ReminderInterval = 300
	}
	if t.ModelPath == "" {
		t.ModelPath = "./kokoro-v1.0.onnx"
	}
	if t.VoicesPath == "" {
		t.VoicesPath = "./voices-v1.0.bin"
	}
	if t.TokenizerPath == "" {
		t.TokenizerPath = "./tokenizer.json"
	}
}

// Mcp holds the state-cache collaborator's exposure toggle.
type Mcp struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

func (m *Mcp) defaults() {
	if m.Port == 0 {
		m.Port = 8766
	}
}

// Config is the top-level, fully-defaulted configuration tree.
type Config struct {
	Hotkey    Hotkey    `yaml:"hotkey"`
	Audio     Audio     `yaml:"audio"`
	Recording Recording `yaml:"recording"`
	Whisper   Whisper   `yaml:"whisper"`
	Ollama    Ollama    `yaml:"ollama"`
	Typer     Typer     `yaml:"typer"`
	Feedback  Feedback  `yaml:"feedback"`
	Silence   Silence   `yaml:"silence"`
	TTS       TTS       `yaml:"tts"`
	Mcp       Mcp       `yaml:"mcp"`
}

func (c *Config) applyDefaults() {
	c.Hotkey.defaults()
	c.Audio.defaults()
	c.Recording.defaults()
	c.Whisper.defaults()
	c.Ollama.defaults()
	c.Typer.defaults()
	c.Silence.defaults()
	c.TTS.defaults()
	c.Mcp.defaults()
}

// Default returns a fully-defaulted Config.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// candidatePaths returns the search order: explicit path, then
// ./config.yaml, then ~/.config/whisper-typer/config.yaml, then
// /etc/whisper-typer/config.yaml.
func candidatePaths(explicit string) []string {
	paths := []string{}
	if explicit != "" {
		paths = append(paths, explicit)
	}
	paths = append(paths, "config.yaml")
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "whisper-typer", "config.yaml"))
	}
	paths = append(paths, filepath.Join("/etc", "whisper-typer", "config.yaml"))
	return paths
}

// Load searches candidatePaths in order and parses the first file found.
// Any read or parse failure at any candidate falls back silently to the
// next; if none parse, Default() is returned.
func Load(explicit string) *Config {
	for _, path := range candidatePaths(explicit) {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		c := &Config{}
		if err := yaml.Unmarshal(data, c); err != nil {
			continue
		}
		c.applyDefaults()
		return c
	}
	return Default()
}
