package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	ollamaDefaultModel = "qwen2.5:1.5b"
	ollamaTagsTimeout  = 10 * time.Second
	ollamaPullTimeout  = time.Hour
)

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type ollamaPullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// Ollama talks to a local Ollama server.
type Ollama struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// NewOllama builds the local backend.
func NewOllama(baseURL, model string) *Ollama {
	if strings.TrimSpace(model) == "" {
		model = ollamaDefaultModel
	}
	return &Ollama{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
	}
}

func (o *Ollama) Name() string  { return NameOllama }
func (o *Ollama) Model() string { return o.model }

func (o *Ollama) RequestTriage(ctx context.Context, prompt string) (string, error) {
	var out ollamaGenerateResponse
	err := o.postJSON(ctx, "/api/generate", ollamaGenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	}, &out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Response), nil
}

// Tags lists the models the server has pulled.
func (o *Ollama) Tags(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, ollamaTagsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create ollama tags request: %w", err)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama tags: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(NameOllama, resp)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode ollama tags: %w", err)
	}
	out := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name != "" {
			out = append(out, m.Name)
		}
	}
	return out, nil
}

// EnsureModel pulls the configured model unless the server already has it.
// It fails when the server is unreachable so callers can retry.
func (o *Ollama) EnsureModel(ctx context.Context) error {
	tags, err := o.Tags(ctx)
	if err != nil {
		return err
	}
	for _, t := range tags {
		if t == o.model || strings.HasPrefix(t, o.model+":") {
			return nil
		}
	}

	slog.Info("Pulling Ollama model (first run can take a while)", "model", o.model)
	pullCtx, cancel := context.WithTimeout(ctx, ollamaPullTimeout)
	defer cancel()
	if err := o.postJSON(pullCtx, "/api/pull", ollamaPullRequest{Name: o.model, Stream: false}, nil); err != nil {
		return fmt.Errorf("pull model %q: %w", o.model, err)
	}
	return nil
}

func (o *Ollama) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal ollama request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(NameOllama, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode ollama %s: %w", path, err)
	}
	return nil
}
