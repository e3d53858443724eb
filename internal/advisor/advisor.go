// Package advisor implements the advisory backends that triage a snapshot
// and the fixed priority chain that picks one at startup.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Backend names, also used as metric labels.
const (
	NameAnthropic = "claude"
	NameOpenAI    = "openai"
	NameOllama    = "ollama"
)

const maxErrorBody = 512

// ErrNotConfigured is returned by Select when no backend can be built.
var ErrNotConfigured = errors.New("no advisory backend configured")

// Advisor sends a prompt to a text-generation service and returns the raw
// reply text.
type Advisor interface {
	Name() string
	Model() string
	RequestTriage(ctx context.Context, prompt string) (string, error)
}

// Config carries credentials and endpoints for every backend. A backend is
// eligible when its credential (cloud) or URL (local) is set.
type Config struct {
	AnthropicAPIKey string
	AnthropicModel  string
	AnthropicURL    string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	OllamaURL   string
	OllamaModel string
}

// DefaultTimeout is the per-call timeout used when none is configured.
func DefaultTimeout(name string) time.Duration {
	switch name {
	case NameOllama:
		return 30 * time.Second
	default:
		return 60 * time.Second
	}
}

// Select walks the fixed priority chain once: Anthropic when its key is set,
// else OpenAI when its key is set, else the local Ollama backend when a URL
// is set. It returns ErrNotConfigured when none qualifies.
func Select(cfg Config) (Advisor, error) {
	if key := strings.TrimSpace(cfg.AnthropicAPIKey); key != "" {
		return NewAnthropic(key, cfg.AnthropicModel, cfg.AnthropicURL), nil
	}
	if key := strings.TrimSpace(cfg.OpenAIAPIKey); key != "" {
		return NewOpenAI(key, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	}
	if url := strings.TrimSpace(cfg.OllamaURL); url != "" {
		return NewOllama(url, cfg.OllamaModel), nil
	}
	return nil, ErrNotConfigured
}

// Describe returns log fields for the selected backend.
func Describe(a Advisor) []any {
	if a == nil {
		return []any{"backend", "none"}
	}
	fields := []any{"backend", a.Name(), "model", a.Model()}
	if o, ok := a.(*Ollama); ok {
		fields = append(fields, "ollama_url", o.baseURL)
	}
	return fields
}

// statusError reads a bounded slice of a non-2xx body into an error.
func statusError(backend string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	slog.Debug("advisory backend returned error status", "backend", backend, "status", resp.StatusCode)
	return fmt.Errorf("%s returned %d: %s", backend, resp.StatusCode, msg)
}
