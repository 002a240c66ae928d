// Package summarizer reduces long TTS input text to one or two sentences
// via the same local generation API used by internal/corrector, so
// spoken notifications stay short.
package summarizer

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ollama/ollama/api"

	"github.com/Mizzlr/whisper-typer/internal/logger"
)

const summarizePrompt = `Summarize the following text in one or two short sentences, suitable to be read aloud. Return only the summary.

Text: %s`

const (
	requestTimeout = 30 * time.Second
	maxInputChars  = 2000
)

// Summarizer calls a local Ollama-compatible /api/generate endpoint.
type Summarizer struct {
	client *api.Client
	model  string
	log    *logger.Logger
}

// New builds a Summarizer against host.
func New(host, model string, log *logger.Logger) (*Summarizer, error) {
	u, err := url.Parse(strings.TrimSuffix(host, "/"))
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: requestTimeout}
	return &Summarizer{client: api.NewClient(u, httpClient), model: model, log: log}, nil
}

// Summarize returns the summary text and latency in milliseconds. On any
// failure it falls back to truncating the input through its second
// sentence-terminator.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, float64) {
	start := time.Now()

	truncated := truncateRunes(text, maxInputChars)

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	stream := false
	req := &api.GenerateRequest{
		Model:  s.model,
		Prompt: fmtPrompt(truncated),
		Stream: &stream,
		Options: map[string]any{
			"temperature": float32(0.3),
			"num_predict": 200,
		},
	}

	var reply string
	err := s.client.Generate(ctx, req, func(r api.GenerateResponse) error {
		reply += r.Response
		return nil
	})
	latencyMs := float64(time.Since(start).Milliseconds())

	if err != nil {
		s.log.Warn("generate failed, falling back to truncation: %v", err)
		return fallbackTruncate(text), latencyMs
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		s.log.Warn("empty response, falling back to truncation")
		return fallbackTruncate(text), latencyMs
	}
	return reply, latencyMs
}

func fmtPrompt(text string) string {
	return strings.Replace(summarizePrompt, "%s", text, 1)
}

// fallbackTruncate takes the text up through its second sentence
// terminator (.!?).
func fallbackTruncate(text string) string {
	count := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
			if count == 2 {
				return strings.TrimSpace(text[:i+1])
			}
		}
	}
	return strings.TrimSpace(text)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
