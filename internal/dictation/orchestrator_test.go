package dictation

import "testing"

func TestStripTrailingThankYouRemovesWhenPrecedingIsLong(t *testing.T) {
	text := "this is a long transcription with more than ten words in it, thank you"
	got := stripTrailingThankYou(text)
	want := "this is a long transcription with more than ten words in it,"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStripTrailingThankYouKeepsShortPreceding(t *testing.T) {
	text := "short one, thank you"
	if got := stripTrailingThankYou(text); got != text {
		t.Fatalf("expected text unchanged for short preceding, got %q", got)
	}
}

func TestStripTrailingThankYouNoSalutation(t *testing.T) {
	text := "nothing to strip here"
	if got := stripTrailingThankYou(text); got != text {
		t.Fatalf("expected text unchanged, got %q", got)
	}
}

func TestStripTrailingThankYouCaseInsensitiveAndPunctuation(t *testing.T) {
	text := "this sentence definitely has more than ten words in it so Thank You!"
	got := stripTrailingThankYou(text)
	if got == text {
		t.Fatal("expected trailing thank-you variant to be stripped")
	}
}

func TestRoundTo1(t *testing.T) {
	cases := map[float64]float64{
		1.04:  1.0,
		1.05:  1.1,
		2.449: 2.4,
	}
	for in, want := range cases {
		if got := roundTo1(in); got != want {
			t.Errorf("roundTo1(%v) = %v, want %v", in, got, want)
		}
	}
}
