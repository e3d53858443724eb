package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"aimonitor/config"
	"aimonitor/internal/advisor"
	"aimonitor/internal/buildinfo"
	"aimonitor/internal/incident"
	incidentsqlite "aimonitor/internal/incident/sqlite"
	"aimonitor/internal/metrics"
	"aimonitor/internal/monitor"
	"aimonitor/internal/predictive"
	"aimonitor/internal/probe"
	"aimonitor/internal/prom"
	"aimonitor/internal/remediation"
	"aimonitor/internal/runtime/docker"
	"aimonitor/internal/snapshot"
	"aimonitor/internal/telemetry"
	"aimonitor/internal/triage"
)

// app is a fully wired monitor plus everything that needs closing.
type app struct {
	monitor  *monitor.Monitor
	metrics  *metrics.Metrics
	provider *telemetry.Provider
	closers  []func() error
}

func (a *app) Close(ctx context.Context) {
	if a.provider != nil {
		if err := a.provider.Shutdown(ctx); err != nil {
			slog.Warn("Tracer shutdown failed", "err", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("Close failed", "err", err)
		}
	}
}

// selectAdvisor returns the configured advisory backend, or nil when none
// qualifies.
func selectAdvisor(cfg config.Config) advisor.Advisor {
	a, err := advisor.Select(advisor.Config{
		AnthropicAPIKey: cfg.Advisor.AnthropicAPIKey,
		AnthropicModel:  cfg.Advisor.AnthropicModel,
		AnthropicURL:    cfg.Advisor.AnthropicURL,
		OpenAIAPIKey:    cfg.Advisor.OpenAIAPIKey,
		OpenAIModel:     cfg.Advisor.OpenAIModel,
		OpenAIBaseURL:   cfg.Advisor.OpenAIBaseURL,
		OllamaURL:       cfg.Advisor.OllamaURL,
		OllamaModel:     cfg.Advisor.OllamaModel,
	})
	if errors.Is(err, advisor.ErrNotConfigured) {
		return nil
	}
	return a
}

func wire(ctx context.Context, cfg config.Config, reg prometheus.Registerer) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.Close(ctx)
		return nil, err
	}

	allow, err := cfg.Allowlist(ctx)
	if err != nil {
		return fail(err)
	}

	rt, err := docker.NewRuntime(cfg.DockerHost)
	if err != nil {
		return fail(err)
	}
	a.closers = append(a.closers, rt.Close)

	querier, err := prom.New(cfg.PrometheusURL)
	if err != nil {
		return fail(err)
	}

	a.metrics = metrics.New(reg)

	probes := []probe.Probe{probe.NewDisk(cfg.DiskPath)}
	if cfg.NTPServer != "" {
		probes = append(probes, probe.NewNTP(cfg.NTPServer, 0))
	}
	gatherer := snapshot.NewGatherer(querier, rt, probes, snapshot.Config{
		QueryTimeout: cfg.QueryTimeout.Std(),
		LogTail:      cfg.LogTailLines,
		LogBytes:     cfg.LogMaxBytes,
		Allowlist:    allow,
	}, nil)

	limiter := remediation.NewLimiter(remediation.Policy{
		Cooldown:         cfg.RestartCooldown.Std(),
		Allowlist:        allow,
		RestartUnhealthy: cfg.RestartUnhealthy,
		RestartExited:    cfg.RestartExited,
		RestartTimeout:   cfg.RestartTimeout.Std(),
	}, remediation.NewLedger(), rt, a.metrics, nil)

	adv := selectAdvisor(cfg)
	var backend triage.Backend
	timeout := cfg.TriageTimeout.Std()
	if adv != nil {
		backend = adv
		if timeout <= 0 {
			timeout = advisor.DefaultTimeout(adv.Name())
		}
	}
	triager := triage.NewClient(backend, a.metrics, timeout)

	var predictor monitor.Predictor
	if cfg.PredictiveEnabled {
		predictor = predictive.NewEvaluator(querier, &predictive.State{}, cfg.PredictiveInterval.Std(), cfg.QueryTimeout.Std(), nil)
	}

	var sink incident.Sink
	if cfg.IncidentsEnabled {
		sinks := incident.Multi{incident.NewFileSink(cfg.IncidentDir)}
		store, err := incidentsqlite.Open(cfg.IncidentDBPath())
		if err != nil {
			slog.Warn("Incident index unavailable; writing reports only", "err", err)
		} else {
			sinks = append(sinks, store)
			a.closers = append(a.closers, store.Close)
		}
		sink = sinks
	}

	a.provider, err = telemetry.NewProvider(ctx, telemetry.ProviderConfig{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		ServiceName: "aimonitor",
		Version:     buildinfo.Resolve(),
	})
	if err != nil {
		return fail(fmt.Errorf("configure tracing: %w", err))
	}

	a.monitor = monitor.New(monitor.Options{
		Interval:          cfg.Interval.Std(),
		Execute:           cfg.Execute,
		SelfHeal:          cfg.SelfHeal,
		MaxRestartsPerRun: cfg.MaxRestartsPerRun,
		TriageEnabled:     cfg.TriageEnabled,
		Allowlist:         allow,
		PrometheusURL:     querier.URL(),
		StartupTimeout:    cfg.StartupTimeout.Std(),
	}, monitor.Deps{
		Gatherer:  gatherer,
		Limiter:   limiter,
		Triager:   triager,
		Predictor: predictor,
		Incidents: sink,
		Metrics:   a.metrics,
		Tracer:    a.provider.Tracer("aimonitor"),
		Runtime:   rt,
		Advisor:   adv,
	})
	return a, nil
}
