// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report reads a finished run back from disk for presentation.
// Given a day's snapshot path it resolves the sibling decision and per-run
// summary files and joins them into entries in decision order.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/paper-digest/internal/workspace"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Entry is one selected paper with its summary, if one was produced.
type Entry struct {
	Paper      types.Paper
	Summary    types.SummaryRecord
	Summarized bool
}

// Report is the consumer view of one run.
type Report struct {
	Topic string

	// Day is the run date taken from the snapshot path; zero if the path
	// does not follow the daily layout.
	Day time.Time

	Queries []string

	// Papers holds every snapshot paper keyed by ID.
	Papers map[string]types.Paper

	// Summaries is the per-run summary mapping, empty if summarization has
	// not run.
	Summaries map[string]types.SummaryRecord

	// Entries follows the selection order. Empty if selection has not run.
	Entries []Entry
}

// Load builds the report for the snapshot at snapshotPath. Missing decision
// or summary files are not errors; a selected ID absent from the snapshot
// is.
func Load(snapshotPath string) (*Report, error) {
	snap, err := workspace.ReadSnapshot(snapshotPath)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Topic:     snap.Topic,
		Queries:   snap.QueryNames(),
		Papers:    snap.Lookup(),
		Summaries: map[string]types.SummaryRecord{},
	}
	if day, ok := workspace.DayOf(snapshotPath); ok {
		r.Day = day
	}

	decisionPath := workspace.DecisionPath(snapshotPath)
	if !workspace.Exists(decisionPath) {
		return r, nil
	}
	decision, err := workspace.ReadDecision(decisionPath)
	if err != nil {
		return nil, err
	}

	r.Summaries, err = workspace.ReadSummaries(workspace.SummaryPath(decisionPath))
	if err != nil {
		return nil, err
	}

	for _, id := range decision.IDs() {
		p, ok := r.Papers[id]
		if !ok {
			return nil, fmt.Errorf("%w: selected paper %s is not in snapshot %s", types.ErrParse, id, snapshotPath)
		}
		s, ok := r.Summaries[id]
		r.Entries = append(r.Entries, Entry{Paper: p, Summary: s, Summarized: ok})
	}
	return r, nil
}

// WriteMarkdown renders the report as a Markdown digest.
func (r *Report) WriteMarkdown(w io.Writer) error {
	title := r.Topic
	if !r.Day.IsZero() {
		title += " " + r.Day.Format(types.DateLayout)
	}
	if _, err := fmt.Fprintf(w, "# %s\n\n", title); err != nil {
		return err
	}
	for i, e := range r.Entries {
		fmt.Fprintf(w, "## %d. %s\n\n", i+1, e.Paper.Title)
		fmt.Fprintf(w, "- ID: [%s](%s)\n", e.Paper.ID, e.Paper.EntryURL)
		fmt.Fprintf(w, "- Authors: %s\n", e.Paper.Authors)
		fmt.Fprintf(w, "- Category: %s\n", e.Paper.PrimaryCategory)
		fmt.Fprintf(w, "- Published: %s\n\n", e.Paper.Published)
		if !e.Summarized {
			fmt.Fprintf(w, "_No summary._\n\n")
			continue
		}
		fmt.Fprintf(w, "%s\n\n", e.Summary.Summary)
		fmt.Fprintf(w, "1. %s\n2. %s\n\n", e.Summary.KeyPoint1, e.Summary.KeyPoint2)
	}
	_, err := fmt.Fprintf(w, "%d of %d papers selected.\n", len(r.Entries), len(r.Papers))
	return err
}
