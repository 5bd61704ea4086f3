// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/query"
	"github.com/pdiddy/paper-digest/internal/selection"
	"github.com/pdiddy/paper-digest/internal/workspace"
	"github.com/pdiddy/paper-digest/pkg/types"
)

var selectCmd = &cobra.Command{
	Use:   "select [snapshot]",
	Short: "Let the LLM select judge_number papers from a snapshot",
	Long: `Select sends the snapshot's titles and abstracts to the LLM in one request
and keeps the judge_number papers it picks for a general audience. The
decision is written next to the snapshot as <day>_judge_result.json; an
existing decision is reused.`,
	RunE: runSelect,
}

var downloadCmd = &cobra.Command{
	Use:   "download [decision]",
	Short: "Download the PDF of every selected paper",
	Long: `Download fetches each selected paper's PDF into the snapshot's daily
directory. Papers whose PDF is already there are skipped without contacting
arXiv. Failures are reported per paper.`,
	RunE: runDownload,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [decision]",
	Short: "Summarize every selected paper, reusing cached summaries",
	Long: `Summarize produces a summary and two key points for each selected paper.
Papers already in paper/total_summary.json are copied from it without an LLM
call; new summaries are added to it as soon as each one is produced. The
run's summaries are written as <day>_summary.json.`,
	RunE: runSummarize,
}

func init() {
	for _, c := range []*cobra.Command{selectCmd, downloadCmd, summarizeCmd} {
		addDateFlag(c)
		rootCmd.AddCommand(c)
	}
}

func runSelect(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	snapshotPath, err := datedArtifact(cmd, args, identity)
	if err != nil {
		return err
	}
	if err := requireFile(snapshotPath, "search"); err != nil {
		return err
	}

	queries, err := query.Compile(cfg.Keyword)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrConfig, err)
	}
	paperCount := len(query.NonEmpty(queries)) * cfg.MaxResultsPerQuery
	if err := selection.CheckCounts(paperCount, cfg.JudgeNumber); err != nil {
		return err
	}

	p, err := buildPipeline(ctx, nil)
	if err != nil {
		return err
	}
	path, err := p.Selector.Select(ctx, snapshotPath, paperCount, cfg.JudgeNumber)
	if err != nil {
		return err
	}
	fmt.Println(success(path))
	return nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	decisionPath, err := datedArtifact(cmd, args, workspace.DecisionPath)
	if err != nil {
		return err
	}
	if err := requireFile(decisionPath, "select"); err != nil {
		return err
	}

	p, err := buildPipeline(ctx, nil)
	if err != nil {
		return err
	}
	result, err := p.Downloader.DownloadSelected(ctx, decisionPath, filepath.Dir(decisionPath))
	for _, it := range result.Items {
		status := string(it.Status)
		if it.Err != nil {
			status = warning(status)
		}
		fmt.Printf("%-10s %s %s\n", status, it.PaperID, faint(it.Path))
	}
	fmt.Printf("\n%d downloaded, %d skipped, %d failed\n", result.Downloaded(), result.Skipped(), result.Failed())
	return err
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	decisionPath, err := datedArtifact(cmd, args, workspace.DecisionPath)
	if err != nil {
		return err
	}
	if err := requireFile(decisionPath, "select"); err != nil {
		return err
	}

	p, err := buildPipeline(ctx, nil)
	if err != nil {
		return err
	}
	path, err := p.Summarizer.Summarize(ctx, decisionPath, p.Layout.PapersRoot(), filepath.Dir(decisionPath))
	if path != "" {
		fmt.Println(success(path))
	}
	return err
}
