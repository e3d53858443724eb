// Package config loads the monitor configuration.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment
// variables, then command-line flags applied by the caller. The file lives
// at $AI_MONITOR_CONFIG, else $XDG_CONFIG_HOME/aimonitor/config.yaml
// (defaults to ~/.config/aimonitor/config.yaml). A missing file is not an
// error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"aimonitor/internal/logging"
)

// Advisor holds credentials and endpoints for the advisory backends.
type Advisor struct {
	AnthropicAPIKey string `yaml:"anthropic_api_key,omitempty"`
	AnthropicModel  string `yaml:"anthropic_model,omitempty"`
	AnthropicURL    string `yaml:"anthropic_url,omitempty" validate:"omitempty,url"`

	OpenAIAPIKey  string `yaml:"openai_api_key,omitempty"`
	OpenAIModel   string `yaml:"openai_model,omitempty"`
	OpenAIBaseURL string `yaml:"openai_base_url,omitempty" validate:"omitempty,url"`

	OllamaURL   string `yaml:"ollama_url,omitempty" validate:"omitempty,url"`
	OllamaModel string `yaml:"ollama_model,omitempty"`
}

// Config is the full monitor configuration.
type Config struct {
	Interval Duration `yaml:"interval" validate:"gt=0"`
	Execute  bool     `yaml:"execute"`

	SelfHeal          bool `yaml:"self_heal"`
	MaxRestartsPerRun int  `yaml:"max_restarts_per_run"`
	RestartUnhealthy  bool `yaml:"restart_unhealthy"`
	RestartExited     bool `yaml:"restart_exited"`
	// RestartCooldown of zero disables the cooldown.
	RestartCooldown Duration `yaml:"restart_cooldown" validate:"gte=0"`
	RestartTimeout  Duration `yaml:"restart_timeout" validate:"gt=0"`

	AllowedContainers []string `yaml:"allowed_containers,omitempty"`
	ComposeFile       string   `yaml:"compose_file,omitempty"`
	ComposeProject    string   `yaml:"compose_project,omitempty"`

	TriageEnabled bool `yaml:"triage_enabled"`
	// TriageTimeout of zero uses the active backend's default.
	TriageTimeout Duration `yaml:"triage_timeout" validate:"gte=0"`
	Advisor       Advisor  `yaml:"advisor"`

	PrometheusURL string   `yaml:"prometheus_url" validate:"required,url"`
	QueryTimeout  Duration `yaml:"query_timeout" validate:"gt=0"`
	DockerHost    string   `yaml:"docker_host,omitempty"`
	LogTailLines  int      `yaml:"log_tail_lines" validate:"gt=0"`
	LogMaxBytes   int      `yaml:"log_max_bytes" validate:"gt=0"`
	NTPServer     string   `yaml:"ntp_server,omitempty"`
	DiskPath      string   `yaml:"disk_path,omitempty"`

	PredictiveEnabled  bool     `yaml:"predictive_enabled"`
	PredictiveInterval Duration `yaml:"predictive_interval" validate:"gt=0"`

	IncidentsEnabled bool   `yaml:"incidents_enabled"`
	IncidentDir      string `yaml:"incident_dir" validate:"required_if=IncidentsEnabled true"`
	IncidentDB       string `yaml:"incident_db,omitempty"`

	MetricsAddr    string   `yaml:"metrics_addr"`
	LogLevel       string   `yaml:"log_level"`
	LogFormat      string   `yaml:"log_format" validate:"omitempty,oneof=json text"`
	OTLPEndpoint   string   `yaml:"otlp_endpoint,omitempty"`
	OTLPInsecure   bool     `yaml:"otlp_insecure,omitempty"`
	StartupTimeout Duration `yaml:"startup_timeout" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Interval:           Duration(60 * time.Second),
		SelfHeal:           true,
		MaxRestartsPerRun:  2,
		RestartUnhealthy:   true,
		RestartExited:      true,
		RestartCooldown:    Duration(600 * time.Second),
		RestartTimeout:     Duration(10 * time.Second),
		TriageEnabled:      true,
		Advisor:            Advisor{OllamaURL: "http://ollama:11434", OllamaModel: "qwen2.5:1.5b"},
		PrometheusURL:      "http://prometheus:9090",
		QueryTimeout:       Duration(5 * time.Second),
		LogTailLines:       50,
		LogMaxBytes:        4000,
		DiskPath:           "/",
		PredictiveEnabled:  true,
		PredictiveInterval: Duration(24 * time.Hour),
		IncidentsEnabled:   true,
		IncidentDir:        "incidents",
		MetricsAddr:        ":8000",
		LogLevel:           logging.LevelInfo,
		LogFormat:          logging.FormatJSON,
		StartupTimeout:     Duration(2 * time.Minute),
	}
}

// Path returns the config file location.
func Path() string {
	if p := strings.TrimSpace(os.Getenv("AI_MONITOR_CONFIG")); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "aimonitor", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "aimonitor", "config.yaml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes c to path, creating directories as needed.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// IncidentDBPath is the sqlite index location, next to the reports unless
// set explicitly.
func (c Config) IncidentDBPath() string {
	if c.IncidentDB != "" {
		return c.IncidentDB
	}
	return filepath.Join(c.IncidentDir, "incidents.db")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects configurations the monitor cannot run with.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
