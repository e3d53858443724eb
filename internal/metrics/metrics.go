// Package metrics defines the Prometheus collectors the monitor updates and
// the pull endpoint that exposes them.
//
// The collectors are the only state shared between the decision cycle and the
// exporter goroutine; client_golang makes every operation on them safe for
// concurrent use.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_monitor"

// Triage call outcomes, used as the "status" label.
const (
	StatusSuccess = "success"
	StatusTimeout = "timeout"
	StatusError   = "error"
)

// Metrics holds every collector the monitor touches.
type Metrics struct {
	// RestartsTotal counts restarts performed. Labels: container.
	RestartsTotal *prometheus.CounterVec
	// TriageCallsTotal counts advisory calls. Labels: backend, status.
	TriageCallsTotal *prometheus.CounterVec
	// HealthyContainers is the healthy count from the last classification.
	HealthyContainers prometheus.Gauge
	// UnhealthyContainers is the unhealthy-or-exited count from the last classification.
	UnhealthyContainers prometheus.Gauge
	// LastRunTimestamp is the unix time of the last gathered snapshot.
	LastRunTimestamp prometheus.Gauge
	// CyclesTotal counts decision cycles by exit point. Labels: outcome.
	CyclesTotal *prometheus.CounterVec
	// CycleDurationSeconds observes wall time per cycle.
	CycleDurationSeconds prometheus.Histogram
}

// New creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RestartsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "restarts_total",
				Help:      "Total container restarts performed by ai-monitor",
			},
			[]string{"container"},
		),
		TriageCallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "triage_calls_total",
				Help:      "Total LLM triage calls",
			},
			[]string{"backend", "status"},
		),
		HealthyContainers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "healthy_containers",
			Help:      "Number of healthy containers in allowlist",
		}),
		UnhealthyContainers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unhealthy_containers",
			Help:      "Number of unhealthy/exited containers in allowlist",
		}),
		LastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp",
			Help:      "Timestamp of last monitor run",
		}),
		CyclesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Decision cycles by exit point",
			},
			[]string{"outcome"},
		),
		CycleDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one decision cycle",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
}

// NewNop returns collectors registered nowhere. Useful for one-shot commands.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// RecordTriageCall increments the triage call counter.
func (m *Metrics) RecordTriageCall(backend, status string) {
	m.TriageCallsTotal.WithLabelValues(backend, status).Inc()
}

// RecordRestart increments the restart counter for container.
func (m *Metrics) RecordRestart(container string) {
	m.RestartsTotal.WithLabelValues(container).Inc()
}

// SetHealth updates both container gauges.
func (m *Metrics) SetHealth(healthy, unhealthy int) {
	m.HealthyContainers.Set(float64(healthy))
	m.UnhealthyContainers.Set(float64(unhealthy))
}
