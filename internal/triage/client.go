package triage

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
	"unicode/utf8"

	"aimonitor/internal/metrics"
	"aimonitor/internal/model"
)

// Backend sends one prompt to an advisory service and returns its raw reply.
// Production: advisor.Anthropic, advisor.OpenAI, advisor.Ollama
// Testing: adapter/fake.Advisor
type Backend interface {
	Name() string
	RequestTriage(ctx context.Context, prompt string) (string, error)
}

// CallRecorder receives triage call accounting.
// Production: *metrics.Metrics
type CallRecorder interface {
	RecordTriageCall(backend, status string)
}

// Client is the boundary between the decision cycle and an advisory backend.
// It never returns an error: every failure collapses to "no triage".
type Client struct {
	backend  Backend
	recorder CallRecorder
	timeout  time.Duration

	unavailableOnce sync.Once
}

// NewClient wraps backend. A nil backend makes every request return absent.
func NewClient(backend Backend, recorder CallRecorder, timeout time.Duration) *Client {
	return &Client{backend: backend, recorder: recorder, timeout: timeout}
}

// BackendName returns the active backend name, or "none".
func (c *Client) BackendName() string {
	if c.backend == nil {
		return "none"
	}
	return c.backend.Name()
}

// Request asks the backend to triage snap. ok is false when no usable
// triage came back.
func (c *Client) Request(ctx context.Context, snap model.Snapshot) (model.Triage, bool) {
	if c.backend == nil {
		c.unavailableOnce.Do(func() {
			slog.Warn("No triage backend configured; escalations yield no triage")
		})
		return model.Triage{}, false
	}
	name := c.backend.Name()

	prompt, err := BuildPrompt(snap)
	if err != nil {
		c.record(name, metrics.StatusError)
		slog.Error("Build triage prompt failed", "backend", name, "err", err)
		return model.Triage{}, false
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := c.backend.RequestTriage(callCtx, prompt)
	if err != nil {
		status := Outcome(err)
		c.record(name, status)
		if status == metrics.StatusTimeout {
			slog.Error("Triage failed", "backend", name, "err", "timeout")
		} else {
			slog.Error("Triage failed", "backend", name, "err", err)
		}
		return model.Triage{}, false
	}

	t, err := Normalize(raw)
	if err != nil {
		c.record(name, metrics.StatusError)
		slog.Error("Triage failed", "backend", name, "err", err)
		slog.Debug("Rejected triage reply", "backend", name, "raw", truncate(raw, 2000))
		return model.Triage{}, false
	}
	c.record(name, metrics.StatusSuccess)
	return t, true
}

func (c *Client) record(backend, status string) {
	if c.recorder != nil {
		c.recorder.RecordTriageCall(backend, status)
	}
}

// Outcome classifies a backend error as a timeout or a generic error.
func Outcome(err error) string {
	if err == nil {
		return metrics.StatusSuccess
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return metrics.StatusTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return metrics.StatusTimeout
	}
	return metrics.StatusError
}

// truncate keeps at most n bytes of s without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
