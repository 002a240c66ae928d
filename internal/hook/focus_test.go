package hook

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteReadFocusRoundTrip(t *testing.T) {
	dir := t.TempDir()

	if err := WriteFocus(dir, "sess-1", "myproject"); err != nil {
		t.Fatalf("WriteFocus: %v", err)
	}

	fs := ReadFocus(dir)
	if fs == nil {
		t.Fatal("expected a focus claim")
	}
	if fs.SessionID != "sess-1" || fs.Project != "myproject" {
		t.Fatalf("unexpected focus state: %+v", fs)
	}

	if !IsFocusSession(dir, "sess-1") {
		t.Fatal("sess-1 should hold focus")
	}
	if IsFocusSession(dir, "sess-2") {
		t.Fatal("sess-2 should not hold focus")
	}
}

func TestIsFocusSessionWithNoClaim(t *testing.T) {
	dir := t.TempDir()
	if !IsFocusSession(dir, "anyone") {
		t.Fatal("expected no-claim state to count as focus for any session")
	}
}

func TestReadFocusExpiresAfterSixHours(t *testing.T) {
	dir := t.TempDir()

	stale := `{"session_id":"old","project":"p","timestamp":"` +
		time.Now().Add(-7*time.Hour).Format(timestampLayout) + `"}`
	if err := os.WriteFile(focusFile(dir), []byte(stale), 0o644); err != nil {
		t.Fatalf("write stale focus: %v", err)
	}

	if fs := ReadFocus(dir); fs != nil {
		t.Fatalf("expected stale focus claim to be treated as absent, got %+v", fs)
	}
	if !IsFocusSession(dir, "anyone") {
		t.Fatal("expected absence of a valid claim to grant focus to any session")
	}
}

func TestIsDuplicateStop(t *testing.T) {
	dir := t.TempDir()

	if IsDuplicateStop(dir, "sess-1", "hello") {
		t.Fatal("first occurrence should not be a duplicate")
	}
	if !IsDuplicateStop(dir, "sess-1", "hello") {
		t.Fatal("repeated identical text should be a duplicate")
	}
	if IsDuplicateStop(dir, "sess-1", "different") {
		t.Fatal("different text should not be a duplicate")
	}
}

func TestCleanupStaleFilesRemovesOldDedupMarkers(t *testing.T) {
	dir := t.TempDir()

	fresh := dedupFile(dir, "sess-new")
	if err := os.WriteFile(fresh, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fresh marker: %v", err)
	}

	old := dedupFile(dir, "sess-old")
	if err := os.WriteFile(old, []byte("y"), 0o644); err != nil {
		t.Fatalf("write old marker: %v", err)
	}
	oldTime := time.Now().Add(-25 * time.Hour)
	if err := os.Chtimes(old, oldTime, oldTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	legacy := filepath.Join(dir, ".last-stop-text")
	if err := os.WriteFile(legacy, []byte("legacy"), 0o644); err != nil {
		t.Fatalf("write legacy marker: %v", err)
	}

	CleanupStaleFiles(dir)

	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("fresh dedup marker should survive cleanup")
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("stale dedup marker should be removed")
	}
	if _, err := os.Stat(legacy); !os.IsNotExist(err) {
		t.Fatal("legacy single-file marker should always be removed")
	}
}

func TestProjectName(t *testing.T) {
	cases := []struct {
		cwd  string
		want string
	}{
		{"", "unknown"},
		{"/", "unknown"},
		{"/home/user/myrepo", "myrepo"},
		{"relative/path", "path"},
	}
	for _, c := range cases {
		if got := ProjectName(c.cwd); got != c.want {
			t.Errorf("ProjectName(%q) = %q, want %q", c.cwd, got, c.want)
		}
	}
}
