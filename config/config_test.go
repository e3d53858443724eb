package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 60*time.Second, cfg.Interval.Std())
	assert.Equal(t, 2, cfg.MaxRestartsPerRun)
	assert.Equal(t, 600*time.Second, cfg.RestartCooldown.Std())
	assert.False(t, cfg.Execute)
	assert.Equal(t, ":8000", cfg.MetricsAddr)
	assert.Equal(t, filepath.Join("incidents", "incidents.db"), cfg.IncidentDBPath())
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
interval: 30
execute: true
max_restarts_per_run: -1
restart_cooldown: 5m
allowed_containers: [api, web]
advisor:
  openai_api_key: sk-test
  openai_model: gpt-4o
log_format: text
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30*time.Second, cfg.Interval.Std())
	assert.True(t, cfg.Execute)
	assert.Equal(t, -1, cfg.MaxRestartsPerRun)
	assert.Equal(t, 5*time.Minute, cfg.RestartCooldown.Std())
	assert.Equal(t, []string{"api", "web"}, cfg.AllowedContainers)
	assert.Equal(t, "sk-test", cfg.Advisor.OpenAIAPIKey)
	assert.Equal(t, "http://ollama:11434", cfg.Advisor.OllamaURL, "untouched defaults survive")
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interval: soon\n"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.AllowedContainers = []string{"db"}
	cfg.Interval = Duration(90 * time.Second)
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestApplyEnvFrom(t *testing.T) {
	env := map[string]string{
		"AI_MONITOR_INTERVAL_SECONDS":        "15",
		"AI_MONITOR_EXECUTE":                 "yes",
		"AI_MONITOR_SELF_HEAL_DOCKER_HEALTH": "nope",
		"AI_MONITOR_MAX_RESTARTS_PER_RUN":    "5",
		"AI_MONITOR_ALLOWED_CONTAINERS":      " api, ,web ",
		"AI_MONITOR_PROM_TIMEOUT_SECONDS":    "2.5",
		"AI_MONITOR_METRICS_PORT":            "9100",
		"CLAUDE_API_KEY":                     "sk-ant",
		"OLLAMA_MODEL":                       "llama3",
		"PROMETHEUS_URL":                     "http://localhost:9090",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnvFrom(mapLookup(env)))

	assert.Equal(t, 15*time.Second, cfg.Interval.Std())
	assert.True(t, cfg.Execute)
	assert.False(t, cfg.SelfHeal)
	assert.Equal(t, 5, cfg.MaxRestartsPerRun)
	assert.Equal(t, []string{"api", "web"}, cfg.AllowedContainers)
	assert.Equal(t, 2500*time.Millisecond, cfg.QueryTimeout.Std())
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, "sk-ant", cfg.Advisor.AnthropicAPIKey)
	assert.Equal(t, "llama3", cfg.Advisor.OllamaModel)
	assert.Equal(t, "http://localhost:9090", cfg.PrometheusURL)
}

func TestApplyEnvFrom_Malformed(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnvFrom(mapLookup(map[string]string{
		"AI_MONITOR_MAX_RESTARTS_PER_RUN": "two",
		"AI_MONITOR_INTERVAL_SECONDS":     "1m",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AI_MONITOR_MAX_RESTARTS_PER_RUN")
	assert.Contains(t, err.Error(), "AI_MONITOR_INTERVAL_SECONDS")
	assert.Equal(t, 2, cfg.MaxRestartsPerRun)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(c *Config){
		"zero interval":       func(c *Config) { c.Interval = 0 },
		"negative cooldown":   func(c *Config) { c.RestartCooldown = Duration(-time.Second) },
		"zero query timeout":  func(c *Config) { c.QueryTimeout = 0 },
		"bad level":           func(c *Config) { c.LogLevel = "loud" },
		"bad format":          func(c *Config) { c.LogFormat = "xml" },
		"missing prometheus":  func(c *Config) { c.PrometheusURL = "" },
		"bad ollama url":      func(c *Config) { c.Advisor.OllamaURL = "not a url" },
		"incidents sans dir":  func(c *Config) { c.IncidentDir = "" },
		"zero log tail lines": func(c *Config) { c.LogTailLines = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestComposeAllowlist(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "stack")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "compose.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: shop
services:
  api:
    image: ghcr.io/example/api:latest
  db:
    image: postgres:16
    container_name: shop-postgres
`), 0o600))

	names, err := ComposeContainerNames(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"shop-api-1", "shop-postgres"}, names)

	names, err = ComposeContainerNames(context.Background(), path, "prod")
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-api-1", "shop-postgres"}, names)

	cfg := Default()
	cfg.AllowedContainers = []string{"monitor"}
	cfg.ComposeFile = path
	allow, err := cfg.Allowlist(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"monitor", "shop-api-1", "shop-postgres"}, allow.Names())
}

func TestPath_EnvOverride(t *testing.T) {
	t.Setenv("AI_MONITOR_CONFIG", "/etc/aimonitor.yaml")
	assert.Equal(t, "/etc/aimonitor.yaml", Path())

	t.Setenv("AI_MONITOR_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "aimonitor", "config.yaml"), Path())
}

func mapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}
