// Package remediation decides whether an automated container restart is
// allowed right now and performs it when it is.
package remediation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"aimonitor/internal/clock"
	"aimonitor/internal/health"
	"aimonitor/internal/model"
)

const (
	DefaultCooldown       = 600 * time.Second
	DefaultRestartTimeout = 10 * time.Second
)

// Policy configures the limiter.
type Policy struct {
	Cooldown         time.Duration
	Allowlist        health.Allowlist
	RestartUnhealthy bool
	RestartExited    bool
	RestartTimeout   time.Duration
}

// Limiter gates restarts behind a per-container cooldown and the allowlist.
type Limiter struct {
	policy    Policy
	ledger    *Ledger
	restarter Restarter
	recorder  Recorder
	clock     clock.Clock
}

// NewLimiter builds a limiter over ledger. recorder and clk may be nil.
func NewLimiter(policy Policy, ledger *Ledger, restarter Restarter, recorder Recorder, clk clock.Clock) *Limiter {
	if policy.RestartTimeout <= 0 {
		policy.RestartTimeout = DefaultRestartTimeout
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if ledger == nil {
		ledger = NewLedger()
	}
	return &Limiter{
		policy:    policy,
		ledger:    ledger,
		restarter: restarter,
		recorder:  recorder,
		clock:     clk,
	}
}

// Ledger exposes the restart ledger the limiter writes to.
func (l *Limiter) Ledger() *Ledger {
	return l.ledger
}

// AttemptRestart restarts name unless it is cooling down or not allowlisted.
// It returns true only when the runtime reported a successful restart, in
// which case the ledger and restart counter are updated.
func (l *Limiter) AttemptRestart(ctx context.Context, name string) bool {
	now := l.clock.Now()
	if last, ok := l.ledger.LastRestart(name); ok && now.Sub(last) < l.policy.Cooldown {
		slog.Warn("Restart skipped (cooldown)",
			"container", name,
			"cooldown_seconds", int(l.policy.Cooldown.Seconds()),
			"last_restart", last.UTC().Format(time.RFC3339))
		return false
	}
	if !l.policy.Allowlist.Admits(name) {
		slog.Warn("Restart blocked (not allowlisted)", "container", name)
		return false
	}

	slog.Warn("Restarting container", "container", name)
	restartCtx, cancel := context.WithTimeout(ctx, l.policy.RestartTimeout+5*time.Second)
	defer cancel()
	if err := l.restarter.Restart(restartCtx, name, l.policy.RestartTimeout); err != nil {
		slog.Error("Restart failed", "container", name, "err", err)
		return false
	}

	l.ledger.Record(name, now)
	if l.recorder != nil {
		l.recorder.RecordRestart(name)
	}
	return true
}

// SelectCandidates returns the allowlisted containers that qualify for an
// automatic restart, deduplicated and sorted so that a per-cycle cap always
// picks the same subset for the same input.
func (l *Limiter) SelectCandidates(containers []model.ContainerStatus) []string {
	seen := make(map[string]struct{})
	for _, c := range containers {
		if c.Name == "" {
			continue
		}
		if !l.policy.Allowlist.Admits(c.Name) {
			continue
		}
		if (l.policy.RestartUnhealthy && c.Unhealthy()) || (l.policy.RestartExited && c.Exited()) {
			seen[c.Name] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
