package tts

import "strings"

// phonemize performs a small rule-based English grapheme-to-phoneme
// pass: lowercase the input, expand a handful of common digraphs to
// single-symbol IPA approximations, and pass everything else through.
// The model tolerates rough phoneme input; what matters is a stable,
// vocabulary-covered symbol stream.
func phonemize(text string) string {
	lower := strings.ToLower(text)

	for _, rule := range digraphRules {
		lower = strings.ReplaceAll(lower, rule.from, rule.to)
	}
	return lower
}

type digraphRule struct{ from, to string }

// digraphRules is applied longest-match-first so "tch" doesn't get
// partially consumed by "ch" first.
var digraphRules = []digraphRule{
	{"tch", "tʃ"},
	{"sh", "ʃ"},
	{"ch", "tʃ"},
	{"th", "θ"},
	{"ph", "f"},
	{"ng", "ŋ"},
	{"qu", "kw"},
}
