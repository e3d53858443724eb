// Package monitor is the decision engine: one cycle turns a health snapshot
// into restarts, an escalation, or nothing, and the run loop repeats cycles
// forever at a fixed interval.
package monitor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"aimonitor/internal/advisor"
	"aimonitor/internal/check"
	"aimonitor/internal/clock"
	"aimonitor/internal/health"
	"aimonitor/internal/incident"
	"aimonitor/internal/metrics"
	"aimonitor/internal/model"
	"aimonitor/internal/predictive"
	"aimonitor/internal/remediation"
	"aimonitor/internal/snapshot"
)

// Cycle exit points, also the "outcome" metric label.
const (
	ExitSelfHealed     = "self_healed"
	ExitHealthy        = "healthy"
	ExitExited         = "exited"
	ExitTriageDisabled = "triage_disabled"
	ExitNoTriage       = "no_triage"
	ExitTriaged        = "triaged"
	ExitFailed         = "failed"
)

const (
	DefaultInterval     = 60 * time.Second
	DefaultMaxRestarts  = 2
	defaultStartupLimit = 2 * time.Minute
)

// Gatherer builds snapshots.
// Production: *snapshot.Gatherer
type Gatherer interface {
	Gather(ctx context.Context, opts snapshot.Options) model.Snapshot
}

// Triager turns a snapshot into a triage. ok is false when nothing usable
// came back.
// Production: *triage.Client
type Triager interface {
	BackendName() string
	Request(ctx context.Context, snap model.Snapshot) (model.Triage, bool)
}

// Predictor decides whether a healthy fleet is trending toward trouble.
// Production: *predictive.Evaluator
type Predictor interface {
	Due(now time.Time) bool
	Evaluate(ctx context.Context) (predictive.Trigger, bool)
}

// Options are the behavior toggles of the decision cycle.
type Options struct {
	Interval time.Duration
	// Execute enables live restarts. Off means dry run.
	Execute  bool
	SelfHeal bool
	// MaxRestartsPerRun caps self-heal attempts per cycle. Negative is unlimited.
	MaxRestartsPerRun int
	TriageEnabled     bool
	Allowlist         health.Allowlist

	// PrometheusURL is only reported in the startup banner.
	PrometheusURL string
	// StartupTimeout bounds the readiness waits in Prepare.
	StartupTimeout time.Duration
}

// Deps are the collaborators of the decision cycle. Predictor, Incidents,
// Tracer and Clock may be nil.
type Deps struct {
	Gatherer  Gatherer
	Limiter   *remediation.Limiter
	Triager   Triager
	Predictor Predictor
	Incidents incident.Sink
	Metrics   *metrics.Metrics
	Tracer    trace.Tracer
	Clock     clock.Clock

	// Runtime is waited on by Prepare when it implements WaitReady.
	Runtime any
	// Advisor is described in the banner and, when it implements
	// EnsureModel, made ready by Prepare.
	Advisor advisor.Advisor
}

// Monitor owns the restart ledger and predictive state for the process
// lifetime. Cycles never overlap, so neither carries a lock.
type Monitor struct {
	opts Options
	deps Deps
}

func New(opts Options, deps Deps) *Monitor {
	check.Assert(deps.Gatherer != nil, "monitor.New: Gatherer must not be nil")
	check.Assert(deps.Limiter != nil, "monitor.New: Limiter must not be nil")
	check.Assert(deps.Triager != nil, "monitor.New: Triager must not be nil")

	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = defaultStartupLimit
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	return &Monitor{opts: opts, deps: deps}
}

func (m *Monitor) now() time.Time {
	return m.deps.Clock.Now()
}
