package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"aimonitor/cmd/aimonitor/ui"
	"aimonitor/internal/model"
	"aimonitor/internal/monitor"
)

func onceCmd(g *globals) *cobra.Command {
	var execute bool

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single decision cycle and print what it did",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.cfg
			if cmd.Flags().Changed("execute") {
				cfg.Execute = execute
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := wire(ctx, cfg, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			result, err := a.monitor.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Print(renderResult(result, cfg.Execute))
			return nil
		},
	}
	cmd.Flags().BoolVar(&execute, "execute", false, "Perform restarts instead of logging them")
	return cmd
}

func renderResult(r model.CycleResult, execute bool) string {
	var sb strings.Builder
	switch r.Exit {
	case monitor.ExitHealthy:
		sb.WriteString(ui.SuccessMsg("All monitored containers healthy") + "\n")
	case monitor.ExitSelfHealed:
		sb.WriteString(ui.SuccessMsg("Restarted %d container(s)", r.Restarts) + "\n")
	case monitor.ExitExited:
		sb.WriteString(ui.WarnMsg("Containers exited; self-heal did not restart them") + "\n")
	case monitor.ExitTriageDisabled:
		sb.WriteString(ui.WarnMsg("Problems found; triage is disabled") + "\n")
	case monitor.ExitNoTriage:
		sb.WriteString(ui.ErrorMsg("Problems found; no triage returned") + "\n")
	case monitor.ExitTriaged:
		sb.WriteString(ui.InfoMsg("Problems triaged") + "\n")
	default:
		sb.WriteString(ui.ErrorMsg("Cycle ended at %q", r.Exit) + "\n")
	}

	mode := "dry run"
	if execute {
		mode = "execute"
	}
	sb.WriteString(ui.KeyValues("  ",
		ui.KV("exit", r.Exit),
		ui.KV("mode", mode),
		ui.KV("restarts", strconv.Itoa(r.Restarts)),
		ui.KV("escalated", ui.Bool(r.Escalated)),
	))

	if t := r.Triage; t != nil {
		sb.WriteString("\n")
		sb.WriteString(ui.KeyValues("  ",
			ui.KV("severity", ui.Severity(string(t.Severity))),
			ui.KV("confidence", strconv.FormatFloat(t.Confidence, 'f', 2, 64)),
			ui.KV("summary", t.Summary),
		))
		if len(t.SuspectedCauses) > 0 {
			sb.WriteString("\n  " + ui.Bold("Suspected causes") + "\n")
			for _, c := range t.SuspectedCauses {
				sb.WriteString("  - " + c + "\n")
			}
		}
		if len(t.RecommendedActions) > 0 {
			rows := make([][]string, 0, len(t.RecommendedActions))
			for _, a := range t.RecommendedActions {
				reason := ""
				if a.Reason != nil {
					reason = *a.Reason
				}
				rows = append(rows, []string{string(a.Type), a.TargetName(), reason})
			}
			sb.WriteString("\n" + ui.Table([]string{"ACTION", "TARGET", "REASON"}, rows) + "\n")
		}
	}
	return sb.String()
}
