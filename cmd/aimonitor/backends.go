package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"aimonitor/cmd/aimonitor/ui"
	"aimonitor/config"
	"aimonitor/internal/advisor"
)

func backendsCmd(g *globals) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "backends",
		Short: "Show which advisory backend would be used",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.cfg
			active := selectAdvisor(cfg)

			rows := backendRows(cfg, active)
			fmt.Println(ui.Table([]string{"PRIORITY", "BACKEND", "CONFIGURED", "ACTIVE"}, rows))

			if active == nil {
				fmt.Println(ui.WarnMsg("No advisory backend configured; escalations yield no triage"))
				return nil
			}
			timeout := cfg.TriageTimeout.Std()
			if timeout <= 0 {
				timeout = advisor.DefaultTimeout(active.Name())
			}
			fmt.Print(ui.KeyValues("",
				ui.KV("backend", ui.Accent(active.Name())),
				ui.KV("model", active.Model()),
				ui.KV("timeout", timeout.String()),
			))

			if !check {
				return nil
			}
			o, ok := active.(*advisor.Ollama)
			if !ok {
				fmt.Println(ui.Muted("Reachability check only applies to the local backend"))
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			tags, err := o.Tags(ctx)
			if err != nil {
				fmt.Println(ui.ErrorMsg("Ollama unreachable: %v", err))
				return nil
			}
			fmt.Println(ui.SuccessMsg("Ollama reachable; %d model(s) pulled: %s", len(tags), strings.Join(tags, ", ")))
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Contact the local backend and list pulled models")
	return cmd
}

func backendRows(cfg config.Config, active advisor.Advisor) [][]string {
	activeName := ""
	if active != nil {
		activeName = active.Name()
	}
	entries := []struct {
		name       string
		configured bool
	}{
		{advisor.NameAnthropic, strings.TrimSpace(cfg.Advisor.AnthropicAPIKey) != ""},
		{advisor.NameOpenAI, strings.TrimSpace(cfg.Advisor.OpenAIAPIKey) != ""},
		{advisor.NameOllama, strings.TrimSpace(cfg.Advisor.OllamaURL) != ""},
	}
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		isActive := "-"
		if e.name == activeName {
			isActive = "yes"
		}
		configured := "no"
		if e.configured {
			configured = "yes"
		}
		rows = append(rows, []string{fmt.Sprint(i + 1), e.name, configured, isActive})
	}
	return rows
}
