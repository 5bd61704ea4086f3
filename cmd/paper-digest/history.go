// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Index, search, and export past digests",
	Long: `History keeps a SQLite index (paper/history.db) of every snapshot,
selection, and summary under root_dir/paper. The index is rebuilt from those
files and can be deleted at any time. run and schedule index each run as it
finishes.`,
}

var historyIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index every run under root_dir/paper",
	Long: `Index walks root_dir/paper for daily snapshots and indexes each run.
Runs whose files have not changed since the last index are skipped.`,
	RunE: runHistoryIndex,
}

var historySearchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search indexed papers by title, abstract, or summary",
	RunE:  runHistorySearch,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export indexed papers to YAML or JSON",
	RunE:  runHistoryExport,
}

func init() {
	for _, c := range []*cobra.Command{historySearchCmd, historyExportCmd} {
		c.Flags().String("topic", "", "filter by topic")
		c.Flags().String("since", "", "only runs on or after this day (YYYY-MM-DD)")
		c.Flags().Bool("selected", false, "only papers that were selected")
	}
	historySearchCmd.Flags().Int("max-results", 0, "maximum results (default 20)")
	historySearchCmd.Flags().Bool("json", false, "print results as JSON")
	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().String("out", "", "output file (default paper/history-export.<format>)")

	historyCmd.AddCommand(historyIndexCmd, historySearchCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*history.Store, error) {
	return history.Open(layout().HistoryPath(), logger)
}

func historyOptions(cmd *cobra.Command, args []string) history.QueryOptions {
	topic, _ := cmd.Flags().GetString("topic")
	since, _ := cmd.Flags().GetString("since")
	selected, _ := cmd.Flags().GetBool("selected")
	opts := history.QueryOptions{
		Query:        strings.Join(args, " "),
		Topic:        topic,
		Since:        since,
		SelectedOnly: selected,
	}
	if cmd.Flags().Lookup("max-results") != nil {
		opts.MaxResults, _ = cmd.Flags().GetInt("max-results")
	}
	return opts
}

func runHistoryIndex(cmd *cobra.Command, args []string) error {
	hs, err := openHistory()
	if err != nil {
		return err
	}
	defer hs.Close()

	summary, err := hs.IndexAll(context.Background(), layout().PapersRoot())
	if err != nil {
		return err
	}
	fmt.Printf("indexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)
	if summary.Failed > 0 {
		return fmt.Errorf("%d run(s) failed indexing", summary.Failed)
	}
	return nil
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	hs, err := openHistory()
	if err != nil {
		return err
	}
	defer hs.Close()

	results, err := hs.Search(context.Background(), historyOptions(cmd, args))
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for _, r := range results {
		mark := " "
		if r.Selected {
			mark = success("*")
		}
		fmt.Printf("%s %s %s\n", mark, heading(r.PaperID), r.Title)
		fmt.Printf("  %s  %s\n", faint(r.Day), faint(r.Topic))
		if r.Summary != "" {
			fmt.Printf("  %s\n", r.Summary)
		}
	}
	fmt.Printf("\n%d result(s)\n", len(results))
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	hs, err := openHistory()
	if err != nil {
		return err
	}
	defer hs.Close()

	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = filepath.Join(layout().PapersRoot(), "history-export."+format)
	}

	opts := historyOptions(cmd, nil)
	switch format {
	case "yaml":
		err = hs.ExportYAML(context.Background(), out, opts)
	case "json":
		err = hs.ExportJSON(context.Background(), out, opts)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
	if err != nil {
		return err
	}
	fmt.Println(success(out))
	return nil
}
