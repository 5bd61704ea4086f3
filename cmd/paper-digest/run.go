// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/history"
	"github.com/pdiddy/paper-digest/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every stage once for today",
	Long: `Run compiles the keyword groups into queries, snapshots today's arXiv
results, selects judge_number papers, downloads them, and summarizes each
one. Stages whose output already exists for today are skipped, so run can be
repeated to resume after a failure.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("no-history", false, "do not index the run into the history database")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := buildPipeline(ctx, nil)
	if err != nil {
		return err
	}

	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		hs, err := history.Open(p.Layout.HistoryPath(), logger)
		if err != nil {
			return err
		}
		defer hs.Close()
		p.History = hs
	}

	res, err := p.Run(ctx)
	printRunResult(res)
	return err
}

func printRunResult(res pipeline.Result) {
	fmt.Println(heading("Run " + res.RunID))
	for _, q := range res.Queries {
		fmt.Printf("  query     %s\n", q)
	}
	if res.SnapshotPath != "" {
		fmt.Printf("  snapshot  %s\n", res.SnapshotPath)
	}
	if res.DecisionPath != "" {
		fmt.Printf("  selection %s\n", res.DecisionPath)
	}
	if n := len(res.Downloads.Items); n > 0 {
		line := fmt.Sprintf("%d downloaded, %d skipped, %d failed",
			res.Downloads.Downloaded(), res.Downloads.Skipped(), res.Downloads.Failed())
		if res.Downloads.HasFailures() {
			line = warning(line)
		}
		fmt.Printf("  documents %s\n", line)
	}
	if res.SummaryPath != "" {
		fmt.Printf("  summaries %s\n", success(res.SummaryPath))
	}
}
