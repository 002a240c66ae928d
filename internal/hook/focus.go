// Package hook implements the editor-integration hook dispatcher's
// persisted state: the single-writer focus file tracking which session
// last had the user's attention, and the per-session dedup markers that
// keep repeated Stop events from being announced twice.
package hook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// focusStaleAfter covers overnight staleness without needing an explicit
// logout signal.
const focusStaleAfter = 6 * time.Hour

// dedupStaleAfter bounds how long per-session dedup markers survive.
const dedupStaleAfter = 24 * time.Hour

// timestampLayout is the wire format of FocusState.Timestamp.
const timestampLayout = "2006-01-02T15:04:05.000"

// FocusState is the persisted claim on which session currently has the
// user's attention.
type FocusState struct {
	SessionID string `json:"session_id"`
	Project   string `json:"project"`
	Timestamp string `json:"timestamp"`
}

// HistoryDir returns ~/.tts-hook-history, creating it if necessary.
func HistoryDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dir := filepath.Join(home, ".tts-hook-history")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func focusFile(dir string) string {
	return filepath.Join(dir, ".focus-session")
}

// ReadFocus returns the current focus claim, or nil if absent, corrupt, or
// older than 6 hours.
func ReadFocus(dir string) *FocusState {
	data, err := os.ReadFile(focusFile(dir))
	if err != nil {
		return nil
	}
	var fs FocusState
	if err := json.Unmarshal(data, &fs); err != nil {
		return nil
	}
	if ts, err := time.ParseInLocation(timestampLayout, fs.Timestamp, time.Local); err == nil {
		if time.Since(ts) > focusStaleAfter {
			return nil
		}
	}
	return &fs
}

// WriteFocus claims focus for sessionID/project, stamped with now.
func WriteFocus(dir, sessionID, project string) error {
	fs := FocusState{SessionID: sessionID, Project: project, Timestamp: NowTimestamp()}
	data, err := json.Marshal(fs)
	if err != nil {
		return err
	}
	return os.WriteFile(focusFile(dir), data, 0o644)
}

// IsFocusSession reports whether sessionID currently holds focus — true if
// it matches the claim, or if no claim exists at all.
func IsFocusSession(dir, sessionID string) bool {
	focus := ReadFocus(dir)
	if focus == nil {
		return true
	}
	return focus.SessionID == sessionID
}

// shortSessionID takes the first 8 characters of sessionID, enough to
// key a dedup file without leaking the whole id into the filename.
func shortSessionID(sessionID string) string {
	if len(sessionID) <= 8 {
		return sessionID
	}
	return sessionID[:8]
}

func dedupFile(dir, sessionID string) string {
	return filepath.Join(dir, ".last-stop-"+shortSessionID(sessionID))
}

// IsDuplicateStop reports whether text is identical to the last Stop text
// recorded for sessionID, then records text as the new marker regardless.
func IsDuplicateStop(dir, sessionID, text string) bool {
	path := dedupFile(dir, sessionID)
	previous, _ := os.ReadFile(path)
	_ = os.WriteFile(path, []byte(text), 0o644)
	return string(previous) == text
}

// CleanupStaleFiles removes the legacy single-file dedup marker and any
// per-session dedup file older than 24 hours. The dispatcher runs it
// before handling each event.
func CleanupStaleFiles(dir string) {
	_ = os.Remove(filepath.Join(dir, ".last-stop-text"))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, ".last-stop-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > dedupStaleAfter {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
}

// NowTimestamp formats the current local time with millisecond
// precision.
func NowTimestamp() string {
	return time.Now().Format(timestampLayout)
}

// ProjectName returns the last path component of cwd, or "unknown".
func ProjectName(cwd string) string {
	if cwd == "" {
		return "unknown"
	}
	base := filepath.Base(cwd)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "unknown"
	}
	return base
}
