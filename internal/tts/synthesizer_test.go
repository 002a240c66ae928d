package tts

import (
	"strings"
	"testing"
)

func TestSplitSentencesRoundTrips(t *testing.T) {
	cases := []string{
		"",
		"Hello world",
		"Hello. World.",
		"Wait, what? Really! Yes. Okay",
		"One sentence with no terminator at all",
	}

	for _, text := range cases {
		parts := SplitSentences(text)
		if strings.Join(parts, "") != text {
			t.Fatalf("SplitSentences(%q) = %q, does not round-trip", text, parts)
		}
	}
}

func TestSplitSentencesBoundaries(t *testing.T) {
	parts := SplitSentences("Is this working? Yes it is!")
	if len(parts) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %+v", len(parts), parts)
	}
	if parts[0] != "Is this working? " {
		t.Fatalf("unexpected first sentence: %q", parts[0])
	}
	if parts[1] != "Yes it is!" {
		t.Fatalf("unexpected second sentence: %q", parts[1])
	}
}

func TestSplitSentencesEmpty(t *testing.T) {
	if got := SplitSentences(""); got != nil {
		t.Fatalf("expected nil for empty input, got %+v", got)
	}
}
