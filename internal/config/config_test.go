package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPopulatesBaselineFields(t *testing.T) {
	c := Default()

	if len(c.Hotkey.Combo) == 0 {
		t.Error("expected default hotkey combo")
	}
	if c.Audio.SampleRate != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", c.Audio.SampleRate)
	}
	if c.Recording.MaxDuration != 120.0 {
		t.Errorf("expected default max duration 120, got %v", c.Recording.MaxDuration)
	}
	if c.TTS.Enabled == nil || !*c.TTS.Enabled {
		t.Error("expected TTS enabled by default")
	}
}

func TestLoadHonorsExplicitTTSDisable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "tts:\n  enabled: false\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c := Load(path)
	if c.TTS.Enabled == nil || *c.TTS.Enabled {
		t.Error("expected explicit tts.enabled=false to survive defaulting")
	}
}

func TestLoadFallsBackToDefaultOnMissingFile(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if c.Audio.SampleRate != 16000 {
		t.Errorf("expected fallback to defaults, got sample rate %d", c.Audio.SampleRate)
	}
}

func TestLoadParsesExplicitFileAndAppliesDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "audio:\n  sample_rate: 44100\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c := Load(path)
	if c.Audio.SampleRate != 44100 {
		t.Errorf("expected configured sample rate 44100, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels != 1 {
		t.Errorf("expected defaulted channels 1, got %d", c.Audio.Channels)
	}
	if len(c.Hotkey.Combo) == 0 {
		t.Error("expected hotkey combo to still be defaulted")
	}
}

func TestLoadFallsBackToDefaultOnMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("not: [valid yaml"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c := Load(path)
	if c.Audio.SampleRate != 16000 {
		t.Errorf("expected fallback to defaults on parse failure, got sample rate %d", c.Audio.SampleRate)
	}
}
