package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"

	"aimonitor/internal/health"
	"aimonitor/internal/incident"
	"aimonitor/internal/model"
	"aimonitor/internal/snapshot"
	"aimonitor/internal/telemetry"
)

var cyclePlan = telemetry.Plan{Steps: []telemetry.PlannedStep{
	{ID: "gather", Title: "gather snapshot"},
	{ID: "classify", Title: "classify containers"},
	{ID: "self_heal", Title: "self-heal"},
	{ID: "predictive", Title: "predictive checks"},
	{ID: "escalate", Title: "escalate"},
	{ID: "escalate/gather", ParentID: "escalate", Title: "gather snapshot with logs"},
	{ID: "escalate/triage", ParentID: "escalate", Title: "request triage"},
	{ID: "escalate/persist", ParentID: "escalate", Title: "persist incident"},
	{ID: "act", Title: "act on recommendations"},
}}

// RunOnce runs one decision cycle to one of its exit points. A panic inside
// the cycle is recovered and returned as an error with Exit set to
// ExitFailed.
func (m *Monitor) RunOnce(ctx context.Context) (result model.CycleResult, err error) {
	started := m.now()
	cyc := m.startCycle(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
			slog.Debug("cycle panic stack", "stack", string(debug.Stack()))
			result.Exit = ExitFailed
		}
		m.deps.Metrics.CyclesTotal.WithLabelValues(result.Exit).Inc()
		m.deps.Metrics.CycleDurationSeconds.Observe(m.now().Sub(started).Seconds())
		cyc.End(result.Exit, err)
	}()

	cycleCtx := ctx
	if cyc != nil {
		cycleCtx = cyc.Context()
	}
	result = m.cycle(cycleCtx, cyc)
	return result, nil
}

func (m *Monitor) startCycle(ctx context.Context) *telemetry.Cycle {
	if m.deps.Tracer == nil {
		return nil
	}
	cyc, err := telemetry.StartCycle(ctx, m.deps.Tracer, "cycle", cyclePlan)
	if err != nil {
		slog.Debug("cycle tracing unavailable", "err", err)
		return nil
	}
	return cyc
}

func (m *Monitor) cycle(ctx context.Context, cyc *telemetry.Cycle) model.CycleResult {
	var result model.CycleResult

	// Gather.
	var snap model.Snapshot
	_ = cyc.RunStep(ctx, "gather", func(ctx context.Context) error {
		snap = m.deps.Gatherer.Gather(ctx, snapshot.Options{})
		m.deps.Metrics.LastRunTimestamp.Set(float64(m.now().Unix()))
		telemetry.Annotate(ctx, attribute.Int("containers", len(snap.Containers)))
		return nil
	})

	// Classify.
	var cls health.Classification
	_ = cyc.RunStep(ctx, "classify", func(ctx context.Context) error {
		cls = health.Classify(snap.Containers, m.opts.Allowlist)
		m.deps.Metrics.SetHealth(len(cls.Healthy), cls.ProblemCount())
		telemetry.Annotate(ctx,
			attribute.Int("healthy", len(cls.Healthy)),
			attribute.Int("unhealthy", len(cls.Unhealthy)),
			attribute.Int("exited", len(cls.Exited)))
		return nil
	})

	// Self-heal.
	if m.opts.SelfHeal {
		_ = cyc.RunStep(ctx, "self_heal", func(ctx context.Context) error {
			result.Restarts = m.selfHeal(ctx, snap)
			return nil
		})
		if result.Restarts > 0 {
			slog.Info("Self-heal actions executed", "restarts", result.Restarts)
			result.Exit = ExitSelfHealed
			return result
		}
	}

	// Fast path.
	trigger := ""
	downTargets := len(snap.Query(snapshot.DownTargets).Result)
	if downTargets == 0 && len(cls.Unhealthy) == 0 {
		if len(cls.Exited) > 0 {
			slog.Warn("Containers exited", "containers", cls.ExitedNames())
			result.Exit = ExitExited
			return result
		}
		slog.Info("Healthy snapshot", "checks", "up + docker health")
		trigger = m.predict(ctx, cyc)
		if trigger == "" {
			result.Exit = ExitHealthy
			return result
		}
	}

	// Escalate.
	if !m.opts.TriageEnabled {
		slog.Debug("Triage disabled; not escalating",
			"down_targets", downTargets,
			"unhealthy", cls.ProblemNames())
		result.Exit = ExitTriageDisabled
		return result
	}
	result.Escalated = true

	t, ok := m.escalate(ctx, cyc, trigger)
	if !ok {
		result.Exit = ExitNoTriage
		return result
	}
	result.Triage = &t

	// Act.
	if m.opts.Execute {
		_ = cyc.RunStep(ctx, "act", func(ctx context.Context) error {
			result.Restarts += m.act(ctx, t)
			return nil
		})
	}
	result.Exit = ExitTriaged
	return result
}

// selfHeal restarts qualifying containers in name order until the per-cycle
// cap of attempts is reached. It returns the number of successful restarts.
func (m *Monitor) selfHeal(ctx context.Context, snap model.Snapshot) int {
	candidates := m.deps.Limiter.SelectCandidates(snap.Containers)
	if len(candidates) == 0 {
		return 0
	}
	if !m.opts.Execute {
		slog.Info("Self-heal dry run; would restart", "containers", candidates)
		return 0
	}

	limit := m.opts.MaxRestartsPerRun
	attempts, restarts := 0, 0
	for _, name := range candidates {
		if limit >= 0 && attempts >= limit {
			slog.Warn("Restart cap reached for this run", "max_restarts_per_run", limit)
			break
		}
		attempts++
		if m.deps.Limiter.AttemptRestart(ctx, name) {
			restarts++
		}
	}
	return restarts
}

// predict returns a trigger reason when predictive checks are due and fire.
func (m *Monitor) predict(ctx context.Context, cyc *telemetry.Cycle) string {
	p := m.deps.Predictor
	if p == nil || !p.Due(m.now()) {
		return ""
	}
	reason := ""
	_ = cyc.RunStep(ctx, "predictive", func(ctx context.Context) error {
		if t, ok := p.Evaluate(ctx); ok {
			reason = t.Reason
			telemetry.Annotate(ctx, attribute.String("trigger", reason))
		}
		return nil
	})
	return reason
}

func (m *Monitor) escalate(ctx context.Context, cyc *telemetry.Cycle, trigger string) (model.Triage, bool) {
	var (
		t  model.Triage
		ok bool
	)
	_ = cyc.RunStep(ctx, "escalate", func(ctx context.Context) error {
		var snap model.Snapshot
		_ = cyc.RunStep(ctx, "escalate/gather", func(ctx context.Context) error {
			snap = m.deps.Gatherer.Gather(ctx, snapshot.Options{WithLogs: true, Trigger: trigger})
			return nil
		})

		err := cyc.RunStep(ctx, "escalate/triage", func(ctx context.Context) error {
			t, ok = m.deps.Triager.Request(ctx, snap)
			if !ok {
				return fmt.Errorf("no triage from %s", m.deps.Triager.BackendName())
			}
			return nil
		})
		if err != nil {
			slog.Warn("No triage returned", "backend", m.deps.Triager.BackendName())
			return err
		}

		slog.Info("AI triage",
			"severity", t.Severity,
			"confidence", t.Confidence,
			"summary", t.Summary,
			"actions", t.RecommendedActions,
			"trigger", trigger)

		if m.deps.Incidents == nil {
			return nil
		}
		_ = cyc.RunStep(ctx, "escalate/persist", func(ctx context.Context) error {
			rec := incident.NewRecord(t, snap, m.deps.Triager.BackendName(), m.now())
			if err := m.deps.Incidents.Persist(ctx, rec); err != nil {
				slog.Error("Incident report failed", "incident", rec.ID.String(), "err", err)
				return err
			}
			slog.Info("Incident recorded", "incident", rec.ID.String(), "severity", t.Severity)
			return nil
		})
		return nil
	})
	return t, ok
}

// act applies restart recommendations through the limiter, so cooldown and
// allowlist still apply. Other action types are informational.
func (m *Monitor) act(ctx context.Context, t model.Triage) int {
	restarts := 0
	for _, a := range t.RecommendedActions {
		if a.Type != model.ActionRestartContainer {
			continue
		}
		target := a.TargetName()
		if target == "" {
			slog.Debug("Skipping restart recommendation without target")
			continue
		}
		if m.deps.Limiter.AttemptRestart(ctx, target) {
			restarts++
		}
	}
	return restarts
}
