// Package tts implements the neural text-to-speech synthesizer:
// vocabulary → phonemize → tokenize → ONNX inference → float PCM → audio
// sink, with a cancel flag that both the queue consumer and a polling
// playback watcher can observe mid-sentence.
package tts

import (
	"encoding/json"
	"fmt"
	"os"
)

// Vocabulary maps single characters to integer token IDs, loaded once at
// startup from a JSON file of the form {"a": 1, "b": 2, ...}.
type Vocabulary struct {
	byChar map[rune]int
}

// LoadVocabulary reads a JSON character→token-id map from path.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tts: read vocabulary: %w", err)
	}
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("tts: parse vocabulary: %w", err)
	}
	v := &Vocabulary{byChar: make(map[rune]int, len(raw))}
	for k, id := range raw {
		runes := []rune(k)
		if len(runes) != 1 {
			continue
		}
		v.byChar[runes[0]] = id
	}
	return v, nil
}

// TokensFor converts phonemized text into token IDs, dropping any
// character absent from the vocabulary.
func (v *Vocabulary) TokensFor(phonemes string) []int64 {
	tokens := make([]int64, 0, len(phonemes))
	for _, r := range phonemes {
		if id, ok := v.byChar[r]; ok {
			tokens = append(tokens, int64(id))
		}
	}
	return tokens
}
