// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/history"
	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/schedule"
	"github.com/pdiddy/paper-digest/internal/server"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline at daily_time on each of selected_days",
	Long: `Schedule stays in the foreground and runs the whole pipeline at
daily_time (local time) on every weekday listed in selected_days. Weekdays may
be English (mon, Monday) or Chinese (周一). A firing that arrives while the
previous run is still going is skipped.

With --addr an HTTP API is served alongside the scheduler:

  GET  /healthz                 liveness and whether a run is in flight
  GET  /metrics                 Prometheus metrics
  GET  /api/v1/digests/{date}   a finished digest as JSON (YYYY-MM-DD)
  POST /api/v1/runs             start a run now (409 while one is in flight)`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().String("addr", "", "serve the status API and metrics on this address (e.g. :9090)")
	scheduleCmd.Flags().Bool("now", false, "run once immediately before waiting for the first firing")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	sched, err := schedule.Parse(cfg.SelectedDays, cfg.DailyTime)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	p, err := buildPipeline(ctx, metrics)
	if err != nil {
		return err
	}
	hs, err := history.Open(p.Layout.HistoryPath(), logger)
	if err != nil {
		return err
	}
	defer hs.Close()
	p.History = hs

	s := &schedule.Scheduler{
		Schedule: sched,
		Log:      logger,
		Metrics:  metrics,
		Job: func(ctx context.Context) error {
			res, err := p.Run(ctx)
			printRunResult(res)
			return err
		},
	}

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		srv := server.New(ctx, addr, p.Layout, s, reg, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", addr).Msg("HTTP server failed")
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if now, _ := cmd.Flags().GetBool("now"); now {
		if err := s.Trigger(ctx); err != nil {
			logger.Error().Err(err).Msg("immediate run failed")
		}
	}

	if err := s.Loop(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
