package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func runCmd(g *globals) *cobra.Command {
	var execute bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monitor loop and serve metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.cfg
			if cmd.Flags().Changed("execute") {
				cfg.Execute = execute
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := wire(ctx, cfg, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				a.Close(closeCtx)
			}()

			a.monitor.Prepare(ctx)
			return a.monitor.Serve(ctx, cfg.MetricsAddr, prometheus.DefaultGatherer)
		},
	}
	cmd.Flags().BoolVar(&execute, "execute", false, "Perform restarts instead of logging them")
	return cmd
}
