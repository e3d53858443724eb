package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_PriorityChain(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  error
	}{
		{
			name:     "anthropic wins",
			cfg:      Config{AnthropicAPIKey: "a", OpenAIAPIKey: "o", OllamaURL: "http://ollama:11434"},
			wantName: NameAnthropic,
		},
		{
			name:     "openai when no anthropic key",
			cfg:      Config{AnthropicAPIKey: "  ", OpenAIAPIKey: "o", OllamaURL: "http://ollama:11434"},
			wantName: NameOpenAI,
		},
		{
			name:     "local fallback",
			cfg:      Config{OllamaURL: "http://ollama:11434"},
			wantName: NameOllama,
		},
		{
			name:    "nothing configured",
			cfg:     Config{},
			wantErr: ErrNotConfigured,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Select(tt.cfg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, a.Name())
		})
	}
}

func TestAnthropic_RequestTriage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "the prompt", req.Messages[0].Content)

		_ = json.NewEncoder(w).Encode(anthropicResponse{Content: []anthropicContent{{Type: "text", Text: " {\"ok\":true} "}}})
	}))
	defer srv.Close()

	a := NewAnthropic("secret", "claude-test", srv.URL)
	got, err := a.RequestTriage(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, got)
}

func TestAnthropic_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewAnthropic("secret", "", srv.URL).RequestTriage(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestAnthropic_ContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewAnthropic("secret", "", srv.URL).RequestTriage(ctx, "p")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOpenAI_RequestTriage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"summary\":\"ok\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI("key", "", srv.URL+"/v1")
	got, err := o.RequestTriage(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, got)
	assert.Equal(t, openAIDefaultModel, o.Model())
}

func TestOllama_RequestTriage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "json", req.Format)
		assert.False(t, req.Stream)
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "{}", Done: true})
	}))
	defer srv.Close()

	got, err := NewOllama(srv.URL+"/", "").RequestTriage(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "{}", got)
}

func TestOllama_EnsureModel(t *testing.T) {
	var pulls atomic.Int32
	tags := `{"models":[{"name":"llama3:latest"}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(tags))
		case "/api/pull":
			pulls.Add(1)
			var req ollamaPullRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "qwen2.5:1.5b", req.Name)
			_, _ = w.Write([]byte(`{"status":"success"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	require.NoError(t, NewOllama(srv.URL, "llama3").EnsureModel(context.Background()))
	assert.Equal(t, int32(0), pulls.Load())

	require.NoError(t, NewOllama(srv.URL, "").EnsureModel(context.Background()))
	assert.Equal(t, int32(1), pulls.Load())
}

func TestOllama_EnsureModelUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	require.Error(t, NewOllama(url, "").EnsureModel(context.Background()))
}
