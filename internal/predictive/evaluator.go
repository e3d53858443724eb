// Package predictive looks for negative trends while the fleet is otherwise
// healthy, so the monitor can escalate before an outright failure.
package predictive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"aimonitor/internal/clock"
	"aimonitor/internal/model"
	"aimonitor/internal/prom"
)

const (
	DefaultInterval = 24 * time.Hour

	// MemGrowthThreshold is the hourly memory growth that fires a trigger.
	MemGrowthThreshold = 100 * 1024 * 1024
	// DiskFreeThreshold is the root filesystem free ratio below which a trigger fires.
	DiskFreeThreshold = 0.2
	// FlapThreshold is the number of availability changes per hour above
	// which a target counts as flapping.
	FlapThreshold = 5
)

const (
	memGrowthQuery = "delta(docker_container_mem_usage[1h])"
	diskFreeQuery  = `node_filesystem_avail_bytes{mountpoint="/"} / node_filesystem_size_bytes{mountpoint="/"}`
	flapQuery      = "changes(up[1h])"
)

const (
	ReasonDiskLow  = "Root filesystem free space below 20%"
	ReasonFlapping = "Targets flapping: more than 5 availability changes in the last hour"
)

// State remembers when trends were last evaluated. The zero State is due
// immediately.
type State struct {
	LastEvaluation time.Time
}

// Trigger is a positive trend finding.
type Trigger struct {
	Reason string
	// Container is set when the trend belongs to one container.
	Container string
}

// Evaluator runs the trend checks against the query backend.
type Evaluator struct {
	querier  prom.Querier
	state    *State
	interval time.Duration
	timeout  time.Duration
	clock    clock.Clock
}

// NewEvaluator builds an evaluator writing to state. A zero interval uses
// DefaultInterval.
func NewEvaluator(querier prom.Querier, state *State, interval, timeout time.Duration, clk clock.Clock) *Evaluator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if state == nil {
		state = &State{}
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Evaluator{querier: querier, state: state, interval: interval, timeout: timeout, clock: clk}
}

// State returns the evaluation state the evaluator writes to.
func (e *Evaluator) State() *State {
	return e.state
}

// Due reports whether the interval has elapsed since the last evaluation.
func (e *Evaluator) Due(now time.Time) bool {
	if e.state.LastEvaluation.IsZero() {
		return true
	}
	return now.Sub(e.state.LastEvaluation) >= e.interval
}

// Evaluate runs memory growth, disk free and flapping checks in that order
// and stops at the first positive. A failed query counts as no trigger for
// its check. The evaluation time is recorded whatever the outcome.
func (e *Evaluator) Evaluate(ctx context.Context) (Trigger, bool) {
	e.state.LastEvaluation = e.clock.Now()

	checks := []func(context.Context) (Trigger, bool){
		e.memoryGrowth,
		e.diskFree,
		e.flapping,
	}
	for _, check := range checks {
		if t, ok := check(ctx); ok {
			slog.Info("Predictive trigger", "reason", t.Reason, "container", t.Container)
			return t, true
		}
	}
	slog.Debug("Predictive checks found no trend")
	return Trigger{}, false
}

func (e *Evaluator) memoryGrowth(ctx context.Context) (Trigger, bool) {
	series, ok := e.query(ctx, "memory_growth", memGrowthQuery)
	if !ok {
		return Trigger{}, false
	}
	for _, s := range series {
		if s.Value <= MemGrowthThreshold {
			continue
		}
		name := containerLabel(s.Labels)
		return Trigger{
			Reason:    fmt.Sprintf("Container %s memory growing %.0f MB/hour", name, s.Value/(1024*1024)),
			Container: name,
		}, true
	}
	return Trigger{}, false
}

func (e *Evaluator) diskFree(ctx context.Context) (Trigger, bool) {
	series, ok := e.query(ctx, "disk_free", diskFreeQuery)
	if !ok {
		return Trigger{}, false
	}
	for _, s := range series {
		if s.Value < DiskFreeThreshold {
			return Trigger{Reason: ReasonDiskLow}, true
		}
	}
	return Trigger{}, false
}

func (e *Evaluator) flapping(ctx context.Context) (Trigger, bool) {
	series, ok := e.query(ctx, "flapping", flapQuery)
	if !ok {
		return Trigger{}, false
	}
	for _, s := range series {
		if s.Value > FlapThreshold {
			return Trigger{Reason: ReasonFlapping}, true
		}
	}
	return Trigger{}, false
}

func (e *Evaluator) query(ctx context.Context, check, expr string) ([]model.Series, bool) {
	series, err := e.querier.Query(ctx, expr, e.timeout)
	if err != nil {
		slog.Warn("Predictive check failed", "check", check, "err", err)
		return nil, false
	}
	return series, true
}

func containerLabel(labels map[string]string) string {
	for _, key := range []string{"name", "container_name", "container"} {
		if v := labels[key]; v != "" {
			return v
		}
	}
	return "unknown"
}
