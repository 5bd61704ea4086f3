// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/pipeline"
	"github.com/pdiddy/paper-digest/internal/workspace"
)

var (
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
	success = color.New(color.FgGreen, color.Bold).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// buildPipeline wires the stages from the loaded configuration.
func buildPipeline(ctx context.Context, metrics *observability.Metrics) (*pipeline.Pipeline, error) {
	return pipeline.Build(ctx, cfg, logger, metrics)
}

func layout() workspace.Layout {
	return workspace.Layout{Root: cfg.RootDir}
}

// artifactArg returns args[0] when given, else today's artifact derived from
// the snapshot path by derive.
func artifactArg(args []string, derive func(string) string) string {
	if len(args) > 0 {
		return args[0]
	}
	return derive(layout().SnapshotPath(time.Now()))
}

func identity(p string) string { return p }

func requireFile(path, stage string) error {
	if !workspace.Exists(path) {
		return fmt.Errorf("%s not found; run %s first", path, stage)
	}
	return nil
}

func addDateFlag(cmd *cobra.Command) {
	cmd.Flags().String("date", "", "use the artifacts of this day (YYYY-MM-DD) instead of today")
}

// datedArtifact resolves the artifact for --date, positional arg, or today.
func datedArtifact(cmd *cobra.Command, args []string, derive func(string) string) (string, error) {
	date, _ := cmd.Flags().GetString("date")
	if date == "" || len(args) > 0 {
		return artifactArg(args, derive), nil
	}
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return "", fmt.Errorf("invalid --date %q: %w", date, err)
	}
	return derive(layout().SnapshotPath(day)), nil
}
