package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aimonitor/cmd/aimonitor/ui"
	"aimonitor/config"
	"aimonitor/internal/buildinfo"
	"aimonitor/internal/logging"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	logLevel   string
	logFormat  string
	debug      bool
	noColor    bool

	cfg config.Config
}

func main() {
	if err := logging.Configure(logging.LevelWarn, logging.FormatText, nil); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	g := &globals{}
	root := &cobra.Command{
		Use:           "aimonitor",
		Short:         "Container health monitor with automatic restarts and AI triage",
		Version:       buildinfo.Resolve(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ui.ConfigureColor(g.noColor)
			return g.load()
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default $AI_MONITOR_CONFIG or ~/.config/aimonitor/config.yaml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format: json, text")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(runCmd(g))
	root.AddCommand(onceCmd(g))
	root.AddCommand(backendsCmd(g))
	root.AddCommand(incidentsCmd(g))
	root.AddCommand(configCmd(g))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// load resolves the configuration: defaults, file, environment, then flags.
func (g *globals) load() error {
	path := g.configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.logFormat != "" {
		cfg.LogFormat = g.logFormat
	}
	if g.debug {
		cfg.LogLevel = logging.LevelDebug
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Configure(cfg.LogLevel, cfg.LogFormat, nil); err != nil {
		return err
	}
	g.cfg = cfg
	return nil
}
