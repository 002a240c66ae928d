// Package corrector rewrites raw dictation text via a local Ollama
// generation endpoint, fixing grammar, punctuation, and the spelling of
// names and technical terms, with a user-maintained correction-pair
// dictionary inlined into the prompt.
package corrector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/Mizzlr/whisper-typer/internal/logger"
)

const promptTemplate = `Fix any grammar, punctuation, and spelling mistakes in names or technical terms in the following dictated text. Return only the corrected text with no commentary.

%sText: %s`

const requestTimeout = 30 * time.Second

// Corrector calls a local Ollama-compatible /api/generate endpoint.
type Corrector struct {
	client *api.Client
	model  string
	log    *logger.Logger
}

// New builds a Corrector against host (e.g. "http://localhost:11434").
func New(host, model string, log *logger.Logger) (*Corrector, error) {
	u, err := url.Parse(strings.TrimSuffix(host, "/"))
	if err != nil {
		return nil, fmt.Errorf("corrector: invalid host: %w", err)
	}
	httpClient := &http.Client{Timeout: requestTimeout}
	return &Corrector{client: api.NewClient(u, httpClient), model: model, log: log}, nil
}

// Process sends text plus a correction-pair dictionary to the LLM. On
// timeout, connect error, non-2xx status, or empty response, it returns
// the original text unchanged.
func (c *Corrector) Process(ctx context.Context, text string, corrections map[string]string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	correctionsBlock := ""
	if len(corrections) > 0 {
		var b strings.Builder
		b.WriteString("Known corrections (apply these substitutions):\n")
		for wrong, right := range corrections {
			fmt.Fprintf(&b, "- %q → %q\n", wrong, right)
		}
		correctionsBlock = b.String()
	}

	prompt := fmt.Sprintf(promptTemplate, correctionsBlock, text)
	stream := false
	temperature := float32(0.1)

	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": 500,
		},
	}

	var reply string
	err := c.client.Generate(ctx, req, func(r api.GenerateResponse) error {
		reply += r.Response
		return nil
	})
	if err != nil {
		c.log.Warn("generate failed, returning original text: %v", err)
		return text
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		c.log.Warn("empty response, returning original text")
		return text
	}
	return reply
}
