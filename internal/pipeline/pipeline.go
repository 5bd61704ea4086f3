// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the digest stages in order for one configuration:
// compile queries, snapshot today's search results, select, download, and
// summarize. Every stage reads the previous stage's artifact from disk and
// skips work already done, so an interrupted run resumes where it stopped
// when invoked again.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/acquire"
	"github.com/pdiddy/paper-digest/internal/history"
	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/query"
	"github.com/pdiddy/paper-digest/internal/selection"
	"github.com/pdiddy/paper-digest/internal/store"
	"github.com/pdiddy/paper-digest/internal/summarize"
	"github.com/pdiddy/paper-digest/internal/workspace"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Pipeline holds the configured stages.
type Pipeline struct {
	Config types.DigestConfig
	Layout workspace.Layout

	Store      *store.Store
	Selector   *selection.Selector
	Downloader *acquire.Downloader
	Summarizer *summarize.Summarizer

	// History, when set, indexes each finished run. Indexing failures are
	// logged and do not fail the run.
	History *history.Store

	Log     zerolog.Logger
	Metrics *observability.Metrics

	// NewRunID returns the identifier attached to a run's log lines. Nil
	// uses a random UUID.
	NewRunID func() string
}

// Result records the artifacts a run produced or reused.
type Result struct {
	RunID        string
	Queries      []string
	SnapshotPath string
	DecisionPath string
	SummaryPath  string
	Downloads    acquire.BatchResult
}

// Run executes the pipeline once. Per-paper download and missing-document
// failures do not stop later stages; they are joined into the returned
// error after the run's summaries are persisted.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{RunID: p.runID()}
	log := observability.WithRun(p.Log, res.RunID, p.Config.Topic)

	log.Info().Msg("run started")
	err := p.run(ctx, &res, log)
	p.Metrics.RunDone(start, err)
	if err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("run finished with errors")
		return res, err
	}
	log.Info().Dur("elapsed", time.Since(start)).Str("summary", res.SummaryPath).Msg("run done")
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, res *Result, log zerolog.Logger) error {
	cfg := p.Config

	queries, err := query.Compile(cfg.Keyword)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrConfig, err)
	}
	res.Queries = query.NonEmpty(queries)
	paperCount := len(res.Queries) * cfg.MaxResultsPerQuery
	if err := selection.CheckCounts(paperCount, cfg.JudgeNumber); err != nil {
		return err
	}

	st := *p.Store
	st.Log = log
	res.SnapshotPath, err = st.FetchAndSnapshot(ctx, cfg.Topic, res.Queries, cfg.MaxResultsPerQuery)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	sel := *p.Selector
	sel.Log = log
	res.DecisionPath, err = sel.Select(ctx, res.SnapshotPath, paperCount, cfg.JudgeNumber)
	if err != nil {
		return fmt.Errorf("selection: %w", err)
	}

	dailyDir := filepath.Dir(res.SnapshotPath)
	dl := *p.Downloader
	dl.Log = log
	res.Downloads, err = dl.DownloadSelected(ctx, res.DecisionPath, dailyDir)
	if err != nil && len(res.Downloads.Items) == 0 {
		return fmt.Errorf("retrieval: %w", err)
	}
	downloadErr := err

	sum := *p.Summarizer
	sum.Log = log
	res.SummaryPath, err = sum.Summarize(ctx, res.DecisionPath, p.Layout.PapersRoot(), dailyDir)
	if err != nil && res.SummaryPath == "" {
		return errors.Join(downloadErr, fmt.Errorf("summarization: %w", err))
	}
	summarizeErr := err

	if p.History != nil {
		if status, err := p.History.IndexRun(ctx, res.SnapshotPath); err != nil {
			log.Warn().Err(err).Msg("history indexing failed")
		} else {
			log.Debug().Str("status", status).Msg("run indexed")
		}
	}

	return errors.Join(downloadErr, summarizeErr)
}

func (p *Pipeline) runID() string {
	if p.NewRunID != nil {
		return p.NewRunID()
	}
	return uuid.NewString()
}
