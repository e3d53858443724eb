// Package snapshot builds the point-in-time view of the fleet that every
// decision cycle starts from.
package snapshot

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"aimonitor/internal/check"
	"aimonitor/internal/clock"
	"aimonitor/internal/health"
	"aimonitor/internal/model"
	"aimonitor/internal/probe"
	"aimonitor/internal/prom"
)

const (
	DefaultQueryTimeout   = 5 * time.Second
	DefaultRuntimeTimeout = 15 * time.Second
	DefaultLogTail        = 50
	DefaultLogBytes       = 4000
)

// Runtime is the container runtime view the gatherer needs.
// Production: runtime/docker.Runtime
// Testing: adapter/fake.Runtime
type Runtime interface {
	List(ctx context.Context) ([]model.ContainerStatus, error)
	Logs(ctx context.Context, name string, lines int) (string, error)
}

// Query is one named PromQL expression.
type Query struct {
	Name        string
	Expr        string
	Description string
}

// DefaultQueries are issued on every gather.
func DefaultQueries() []Query {
	return []Query{
		{
			Name:        DownTargets,
			Expr:        "up == 0",
			Description: "Any Prometheus scrape targets currently down",
		},
		{
			Name:        "container_mem_top",
			Expr:        "topk(5, docker_container_mem_usage)",
			Description: "Top container memory usage (bytes) if available",
		},
		{
			Name:        "container_cpu_top",
			Expr:        "topk(5, rate(container_cpu_usage_seconds_total[5m]))",
			Description: "Top container CPU usage (cores) if available",
		},
	}
}

// DownTargets is the query whose non-empty result means a scrape target is down.
const DownTargets = "down_targets"

// Config tunes a Gatherer. Zero values take the package defaults.
type Config struct {
	Queries        []Query
	QueryTimeout   time.Duration
	RuntimeTimeout time.Duration
	LogTail        int
	LogBytes       int
	Allowlist      health.Allowlist
}

// Options select what one gather includes.
type Options struct {
	// WithLogs attaches recent logs to every unhealthy or exited container.
	WithLogs bool
	// Trigger tags the snapshot with the reason it was taken.
	Trigger string
}

// Gatherer collects snapshots. A failing query, probe or runtime listing is
// recorded inline and never aborts the gather.
type Gatherer struct {
	querier prom.Querier
	runtime Runtime
	probes  []probe.Probe
	cfg     Config
	clock   clock.Clock
}

func NewGatherer(querier prom.Querier, runtime Runtime, probes []probe.Probe, cfg Config, clk clock.Clock) *Gatherer {
	check.Assert(querier != nil, "snapshot.NewGatherer: querier must not be nil")
	check.Assert(runtime != nil, "snapshot.NewGatherer: runtime must not be nil")
	if cfg.Queries == nil {
		cfg.Queries = DefaultQueries()
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	if cfg.RuntimeTimeout <= 0 {
		cfg.RuntimeTimeout = DefaultRuntimeTimeout
	}
	if cfg.LogTail <= 0 {
		cfg.LogTail = DefaultLogTail
	}
	if cfg.LogBytes <= 0 {
		cfg.LogBytes = DefaultLogBytes
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Gatherer{querier: querier, runtime: runtime, probes: probes, cfg: cfg, clock: clk}
}

// Gather runs every query and probe in order, then lists containers.
func (g *Gatherer) Gather(ctx context.Context, opts Options) model.Snapshot {
	snap := model.Snapshot{
		TakenAt:    g.clock.Now().UTC(),
		Queries:    make(map[string]model.QueryResult, len(g.cfg.Queries)+len(g.probes)),
		Containers: []model.ContainerStatus{},
		Trigger:    opts.Trigger,
	}

	for _, q := range g.cfg.Queries {
		snap.Queries[q.Name] = g.runQuery(ctx, q)
	}
	for _, p := range g.probes {
		pctx, cancel := context.WithTimeout(ctx, g.cfg.QueryTimeout)
		snap.Queries[p.Name()] = p.Probe(pctx)
		cancel()
	}

	listCtx, cancel := context.WithTimeout(ctx, g.cfg.RuntimeTimeout)
	containers, err := g.runtime.List(listCtx)
	cancel()
	if err != nil {
		slog.Warn("Container listing failed", "err", err)
		snap.RuntimeError = err.Error()
		return snap
	}
	snap.Containers = containers

	if opts.WithLogs {
		g.attachLogs(ctx, snap.Containers)
	}
	return snap
}

func (g *Gatherer) runQuery(ctx context.Context, q Query) model.QueryResult {
	res := model.QueryResult{Description: q.Description, Query: q.Expr, Result: []model.Series{}}
	series, err := g.querier.Query(ctx, q.Expr, g.cfg.QueryTimeout)
	if err != nil {
		slog.Debug("Snapshot query failed", "query", q.Name, "err", err)
		res.Error = err.Error()
		return res
	}
	if series != nil {
		res.Result = series
	}
	return res
}

// attachLogs fills RecentLogs in place for problem containers inside the
// allowlist. A log fetch failure leaves a marker instead of the logs.
func (g *Gatherer) attachLogs(ctx context.Context, containers []model.ContainerStatus) {
	for i := range containers {
		c := &containers[i]
		if !g.cfg.Allowlist.Admits(c.Name) || !(c.Unhealthy() || c.Exited()) {
			continue
		}
		logCtx, cancel := context.WithTimeout(ctx, g.cfg.RuntimeTimeout)
		text, err := g.runtime.Logs(logCtx, c.Name, g.cfg.LogTail)
		cancel()
		if err != nil {
			slog.Debug("Container logs unavailable", "container", c.Name, "err", err)
			c.RecentLogs = "<logs unavailable: " + err.Error() + ">"
			continue
		}
		c.RecentLogs = Tail(text, g.cfg.LogBytes)
	}
}

// Tail keeps the last max bytes of s without splitting a UTF-8 sequence.
func Tail(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := len(s) - max
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return "..." + strings.TrimLeft(s[cut:], "\n")
}
