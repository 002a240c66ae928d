package history

import (
	"encoding/json"
	"os"
	"testing"
	"time"
)

type testRecord struct {
	Value string `json:"value"`
}

func TestAppendAndLoadRawRoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := s.Append(testRecord{Value: "one"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(testRecord{Value: "two"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	raw, err := s.LoadRaw(time.Now())
	if err != nil {
		t.Fatalf("LoadRaw: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("expected 2 records, got %d", len(raw))
	}

	var first testRecord
	if err := json.Unmarshal(raw[0], &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first.Value != "one" {
		t.Fatalf("expected first record value %q, got %q", "one", first.Value)
	}
}

func TestLoadRawMissingDateReturnsNilNoError(t *testing.T) {
	s, err := NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	raw, err := s.LoadRaw(time.Now().AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("LoadRaw: %v", err)
	}
	if raw != nil {
		t.Fatalf("expected nil for missing date, got %+v", raw)
	}
}

func TestListDatesNewestFirst(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, "-tts")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	days := []time.Time{
		mustParseDay("2026-01-01"),
		mustParseDay("2026-03-15"),
		mustParseDay("2026-02-10"),
	}
	for _, day := range days {
		if err := appendAt(s, day, testRecord{Value: day.Format("2006-01-02")}); err != nil {
			t.Fatalf("appendAt: %v", err)
		}
	}

	dates, err := s.ListDates()
	if err != nil {
		t.Fatalf("ListDates: %v", err)
	}
	want := []string{"2026-03-15", "2026-02-10", "2026-01-01"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %+v", len(want), dates)
	}
	for i, d := range want {
		if dates[i] != d {
			t.Fatalf("dates[%d] = %q, want %q (full: %+v)", i, dates[i], d, dates)
		}
	}
}

func mustParseDay(s string) time.Time {
	tm, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return tm
}

// appendAt writes a record directly to the file for the given day, since
// Append always targets time.Now().
func appendAt(s *Store, day time.Time, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	path := s.pathForDate(day)
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
