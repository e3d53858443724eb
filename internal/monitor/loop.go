package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"aimonitor/internal/advisor"
	"aimonitor/internal/metrics"
)

type readier interface {
	WaitReady(ctx context.Context) error
}

type modelEnsurer interface {
	EnsureModel(ctx context.Context) error
}

// Prepare waits for the container runtime and the local advisory model, then
// logs the startup banner. Neither wait is fatal: a cycle run against a
// missing dependency degrades the same way it would mid-run.
func (m *Monitor) Prepare(ctx context.Context) {
	if r, ok := m.deps.Runtime.(readier); ok {
		waitCtx, cancel := context.WithTimeout(ctx, m.opts.StartupTimeout)
		if err := r.WaitReady(waitCtx); err != nil {
			slog.Warn("Container runtime not ready", "err", err)
		}
		cancel()
	}

	if e, ok := m.deps.Advisor.(modelEnsurer); ok {
		if err := m.ensureModel(ctx, e); err != nil {
			slog.Warn("Advisory model not ready; triage may fail until it is", "err", err)
		}
	}

	fields := []any{"prometheus_url", m.opts.PrometheusURL}
	fields = append(fields, advisor.Describe(m.deps.Advisor)...)
	fields = append(fields,
		"interval_seconds", int(m.opts.Interval.Seconds()),
		"execute", m.opts.Execute,
		"self_heal", m.opts.SelfHeal,
		"triage_enabled", m.opts.TriageEnabled,
		"allowed_containers", m.opts.Allowlist.Names())
	slog.Info("AI monitor starting", fields...)
}

func (m *Monitor) ensureModel(ctx context.Context, e modelEnsurer) error {
	waitCtx, cancel := context.WithTimeout(ctx, m.opts.StartupTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(2*time.Second),
		backoff.WithMaxInterval(15*time.Second),
		backoff.WithMaxElapsedTime(m.opts.StartupTimeout),
	)
	notify := func(err error, next time.Duration) {
		slog.Warn("Ollama not ready yet; retrying", "err", err, "retry_in", next.Round(time.Millisecond).String())
	}
	if err := backoff.RetryNotify(func() error { return e.EnsureModel(waitCtx) }, backoff.WithContext(b, waitCtx), notify); err != nil {
		return fmt.Errorf("ensure advisory model: %w", err)
	}
	return nil
}

// Run repeats cycles until ctx is cancelled. A cycle in flight is never
// interrupted by cancellation; the loop stops before the next one. Cycle
// errors are logged and the loop continues.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		result, err := m.RunOnce(context.WithoutCancel(ctx))
		if err != nil {
			slog.Error("Run loop error", "err", err)
		} else {
			slog.Debug("Cycle finished", "exit", result.Exit, "restarts", result.Restarts, "escalated", result.Escalated)
		}

		timer := time.NewTimer(m.opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Serve runs the metrics endpoint on addr next to the cycle loop. When addr
// is empty only the loop runs. A metrics failure is logged and the loop keeps
// going; only ctx cancellation stops both.
func (m *Monitor) Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	if addr == "" {
		return m.Run(ctx)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		if err := metrics.Serve(ctx, addr, g); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Metrics server failed", "err", err)
		}
		return nil
	})
	eg.Go(func() error {
		return m.Run(ctx)
	})
	return eg.Wait()
}
