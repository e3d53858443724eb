package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables from the process environment.
func (c *Config) ApplyEnv() error {
	return c.ApplyEnvFrom(os.LookupEnv)
}

// ApplyEnvFrom overlays environment variables read through lookup. Unset
// variables leave the current value alone; malformed numbers are errors.
func (c *Config) ApplyEnvFrom(lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.duration("AI_MONITOR_INTERVAL_SECONDS", &c.Interval)
	e.boolean("AI_MONITOR_EXECUTE", &c.Execute)
	e.boolean("AI_MONITOR_SELF_HEAL_DOCKER_HEALTH", &c.SelfHeal)
	e.integer("AI_MONITOR_MAX_RESTARTS_PER_RUN", &c.MaxRestartsPerRun)
	e.boolean("AI_MONITOR_RESTART_UNHEALTHY", &c.RestartUnhealthy)
	e.boolean("AI_MONITOR_RESTART_EXITED", &c.RestartExited)
	e.duration("AI_MONITOR_RESTART_COOLDOWN_SECONDS", &c.RestartCooldown)
	e.duration("AI_MONITOR_RESTART_TIMEOUT_SECONDS", &c.RestartTimeout)
	e.list("AI_MONITOR_ALLOWED_CONTAINERS", &c.AllowedContainers)
	e.str("AI_MONITOR_COMPOSE_FILE", &c.ComposeFile)
	e.str("AI_MONITOR_COMPOSE_PROJECT", &c.ComposeProject)

	e.boolean("AI_MONITOR_LLM_ENABLED", &c.TriageEnabled)
	e.duration("AI_MONITOR_OLLAMA_TIMEOUT_SECONDS", &c.TriageTimeout)
	e.duration("AI_MONITOR_TRIAGE_TIMEOUT_SECONDS", &c.TriageTimeout)

	e.str("PROMETHEUS_URL", &c.PrometheusURL)
	e.duration("AI_MONITOR_PROM_TIMEOUT_SECONDS", &c.QueryTimeout)
	e.integer("AI_MONITOR_LOG_TAIL_LINES", &c.LogTailLines)
	e.integer("AI_MONITOR_LOG_MAX_BYTES", &c.LogMaxBytes)
	e.str("AI_MONITOR_NTP_SERVER", &c.NTPServer)
	e.str("AI_MONITOR_DISK_PATH", &c.DiskPath)

	e.boolean("AI_MONITOR_PREDICTIVE_ENABLED", &c.PredictiveEnabled)
	e.duration("AI_MONITOR_PREDICTIVE_INTERVAL_SECONDS", &c.PredictiveInterval)

	e.boolean("AI_MONITOR_INCIDENTS_ENABLED", &c.IncidentsEnabled)
	e.str("AI_MONITOR_INCIDENT_DIR", &c.IncidentDir)
	e.str("AI_MONITOR_INCIDENT_DB", &c.IncidentDB)

	var port int
	if e.integer("AI_MONITOR_METRICS_PORT", &port) {
		c.MetricsAddr = ":" + strconv.Itoa(port)
	}
	e.str("AI_MONITOR_METRICS_ADDR", &c.MetricsAddr)
	e.str("AI_MONITOR_LOG_LEVEL", &c.LogLevel)
	e.str("AI_MONITOR_LOG_FORMAT", &c.LogFormat)
	e.str("AI_MONITOR_OTLP_ENDPOINT", &c.OTLPEndpoint)
	e.boolean("AI_MONITOR_OTLP_INSECURE", &c.OTLPInsecure)
	e.duration("AI_MONITOR_STARTUP_TIMEOUT_SECONDS", &c.StartupTimeout)

	a := &c.Advisor
	e.str("ANTHROPIC_API_KEY", &a.AnthropicAPIKey)
	e.str("CLAUDE_API_KEY", &a.AnthropicAPIKey)
	e.str("CLAUDE_MODEL", &a.AnthropicModel)
	e.str("OPENAI_API_KEY", &a.OpenAIAPIKey)
	e.str("OPENAI_MODEL", &a.OpenAIModel)
	e.str("OPENAI_BASE_URL", &a.OpenAIBaseURL)
	e.str("OLLAMA_URL", &a.OllamaURL)
	e.str("OLLAMA_MODEL", &a.OllamaModel)

	return errors.Join(e.errs...)
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

// boolean treats 1, true, yes, y and on as true and anything else as false.
func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		*dst = true
	default:
		*dst = false
	}
}

func (e *envReader) integer(key string, dst *int) bool {
	v, ok := e.get(key)
	if !ok {
		return false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return false
	}
	*dst = n
	return true
}

// duration reads whole or fractional seconds.
func (e *envReader) duration(key string, dst *Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid number of seconds %q", key, v))
		return
	}
	*dst = Duration(secs * float64(time.Second))
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}
