// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/report"
	"github.com/pdiddy/paper-digest/internal/workspace"
)

var digestCmd = &cobra.Command{
	Use:   "digest [snapshot]",
	Short: "Print a run's selected papers and summaries",
	Long: `Digest reads a day's snapshot, selection, and summaries and prints the
selected papers in selection order with their summaries. Use --format
markdown to write a Markdown digest, or --out to write it to a file.`,
	RunE: runDigest,
}

func init() {
	addDateFlag(digestCmd)
	digestCmd.Flags().String("format", "text", "output format: text or markdown")
	digestCmd.Flags().String("out", "", "write the digest to this file instead of stdout")
	rootCmd.AddCommand(digestCmd)
}

func runDigest(cmd *cobra.Command, args []string) error {
	snapshotPath, err := datedArtifact(cmd, args, identity)
	if err != nil {
		return err
	}
	if err := requireFile(snapshotPath, "search"); err != nil {
		return err
	}
	r, err := report.Load(snapshotPath)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	switch {
	case out != "":
		var buf bytes.Buffer
		if err := r.WriteMarkdown(&buf); err != nil {
			return err
		}
		if err := workspace.WriteFileAtomic(out, buf.Bytes(), 0o644); err != nil {
			return err
		}
		fmt.Println(success(out))
		return nil
	case format == "markdown":
		return r.WriteMarkdown(os.Stdout)
	case format == "text":
		printDigest(r)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or markdown)", format)
	}
}

func printDigest(r *report.Report) {
	title := r.Topic
	if !r.Day.IsZero() {
		title += "  " + r.Day.Format("2006-01-02")
	}
	fmt.Println(heading(title))
	if len(r.Entries) == 0 {
		fmt.Printf("%d papers found, none selected yet\n", len(r.Papers))
		return
	}
	for i, e := range r.Entries {
		fmt.Printf("\n%s %s\n", success(fmt.Sprintf("%d.", i+1)), e.Paper.Title)
		fmt.Printf("   %s  %s  %s\n", faint(e.Paper.ID), e.Paper.PrimaryCategory, e.Paper.Published)
		if !e.Summarized {
			fmt.Printf("   %s\n", warning("no summary"))
			continue
		}
		fmt.Printf("   %s\n", e.Summary.Summary)
		fmt.Printf("   - %s\n   - %s\n", e.Summary.KeyPoint1, e.Summary.KeyPoint2)
	}
}
