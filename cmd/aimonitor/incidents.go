package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"aimonitor/cmd/aimonitor/ui"
	"aimonitor/internal/incident"
	incidentsqlite "aimonitor/internal/incident/sqlite"
)

func incidentsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "incidents",
		Short: "Browse recorded incidents",
	}
	cmd.AddCommand(incidentsListCmd(g))
	cmd.AddCommand(incidentsShowCmd(g))
	return cmd
}

func incidentsListCmd(g *globals) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List incidents, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := incidentsqlite.Open(g.cfg.IncidentDBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			items, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println(ui.Muted("No incidents recorded"))
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, []string{
					it.ID.String(),
					it.CreatedAt.Local().Format(time.DateTime),
					string(it.Severity),
					strconv.FormatFloat(it.Confidence, 'f', 2, 64),
					it.Backend,
					truncate(it.Summary, 60),
				})
			}
			fmt.Println(ui.Table([]string{"ID", "CREATED", "SEVERITY", "CONFIDENCE", "BACKEND", "SUMMARY"}, rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum incidents to show, 0 for all")
	return cmd
}

func incidentsShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print one incident report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse incident id: %w", err)
			}
			store, err := incidentsqlite.Open(g.cfg.IncidentDBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			rec, ok, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("incident %s not found", id)
			}
			report, err := incident.RenderMarkdown(rec)
			if err != nil {
				return err
			}
			fmt.Print(report)
			return nil
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
