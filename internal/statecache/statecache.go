// Package statecache persists the service-control cache file through
// which an out-of-process collaborator mutates mode, corrector
// enablement, and the recent-transcription list, and flags a
// vocabulary/corrections reload, between daemon invocations.
package statecache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const maxRecent = 20

// State is the on-disk shape of ~/.cache/whisper-typer/state.json.
type State struct {
	Mode                 string   `json:"mode"`
	CorrectorEnabled     bool     `json:"corrector_enabled"`
	RecentTranscriptions []string `json:"recent_transcriptions"`
	VocabularyUpdated    bool     `json:"vocabulary_updated,omitempty"`
	CorrectionsUpdated   bool     `json:"corrections_updated,omitempty"`
}

// Cache guards reads and writes of the state file with a mutex.
type Cache struct {
	path string
	mu   sync.Mutex
}

// DefaultPath returns ~/.cache/whisper-typer/state.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "whisper-typer", "state.json"), nil
}

// New returns a Cache backed by path, creating its parent directory.
func New(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Cache{path: path}, nil
}

func (c *Cache) read() State {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return State{Mode: "corrected", CorrectorEnabled: true}
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{Mode: "corrected", CorrectorEnabled: true}
	}
	return s
}

func (c *Cache) write(s State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}

// Read returns the current state.
func (c *Cache) Read() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

// AddTranscription appends text to the recent list, capping it at 20
// entries (dropping the oldest), and persists the result.
func (c *Cache) AddTranscription(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.read()
	s.RecentTranscriptions = append(s.RecentTranscriptions, text)
	if len(s.RecentTranscriptions) > maxRecent {
		excess := len(s.RecentTranscriptions) - maxRecent
		s.RecentTranscriptions = s.RecentTranscriptions[excess:]
	}
	return c.write(s)
}

// SetMode persists a new output mode ("raw", "corrected", or "both").
func (c *Cache) SetMode(mode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.read()
	s.Mode = mode
	return c.write(s)
}

// SetCorrectorEnabled persists the corrector on/off toggle.
func (c *Cache) SetCorrectorEnabled(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.read()
	s.CorrectorEnabled = enabled
	return c.write(s)
}

// ReloadFlags reports and clears the vocabulary/corrections dirty flags.
// The dictation orchestrator calls it at the start of each processing
// cycle and reloads whichever file was flagged.
func (c *Cache) ReloadFlags() (vocabulary, corrections bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.read()
	vocabulary, corrections = s.VocabularyUpdated, s.CorrectionsUpdated
	if !vocabulary && !corrections {
		return
	}
	s.VocabularyUpdated = false
	s.CorrectionsUpdated = false
	if err := c.write(s); err != nil {
		// The caller already has the flags it needs; a failed clear just
		// means the next processing cycle reloads again, which is harmless.
		return
	}
	return
}

// MarkVocabularyUpdated sets the dirty flag a collaborator uses to signal a
// vocabulary file change.
func (c *Cache) MarkVocabularyUpdated() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.read()
	s.VocabularyUpdated = true
	return c.write(s)
}

// MarkCorrectionsUpdated sets the dirty flag a collaborator uses to signal
// a corrections file change.
func (c *Cache) MarkCorrectionsUpdated() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.read()
	s.CorrectionsUpdated = true
	return c.write(s)
}
