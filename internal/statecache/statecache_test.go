package statecache

import (
	"path/filepath"
	"testing"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestReadDefaultsWhenFileMissing(t *testing.T) {
	c := newTestCache(t)
	s := c.Read()
	if s.Mode != "corrected" || !s.CorrectorEnabled {
		t.Fatalf("unexpected default state: %+v", s)
	}
}

func TestSetModeAndCorrectorEnabledPersist(t *testing.T) {
	c := newTestCache(t)

	if err := c.SetMode("raw"); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if err := c.SetCorrectorEnabled(false); err != nil {
		t.Fatalf("SetCorrectorEnabled: %v", err)
	}

	s := c.Read()
	if s.Mode != "raw" {
		t.Fatalf("expected mode raw, got %q", s.Mode)
	}
	if s.CorrectorEnabled {
		t.Fatal("expected corrector disabled")
	}
}

func TestAddTranscriptionCapsAtTwenty(t *testing.T) {
	c := newTestCache(t)

	for i := 0; i < 25; i++ {
		if err := c.AddTranscription("line"); err != nil {
			t.Fatalf("AddTranscription: %v", err)
		}
	}

	s := c.Read()
	if len(s.RecentTranscriptions) != maxRecent {
		t.Fatalf("expected %d recent transcriptions, got %d", maxRecent, len(s.RecentTranscriptions))
	}
}

func TestReloadFlagsReportsAndClears(t *testing.T) {
	c := newTestCache(t)

	if err := c.MarkVocabularyUpdated(); err != nil {
		t.Fatalf("MarkVocabularyUpdated: %v", err)
	}
	if err := c.MarkCorrectionsUpdated(); err != nil {
		t.Fatalf("MarkCorrectionsUpdated: %v", err)
	}

	vocab, corrections := c.ReloadFlags()
	if !vocab || !corrections {
		t.Fatalf("expected both flags set, got vocab=%v corrections=%v", vocab, corrections)
	}

	vocab, corrections = c.ReloadFlags()
	if vocab || corrections {
		t.Fatalf("expected flags cleared after first read, got vocab=%v corrections=%v", vocab, corrections)
	}
}
