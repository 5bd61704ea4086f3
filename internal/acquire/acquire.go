// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire downloads the documents of selected papers into the daily
// directory. A document file at its deterministic path is the completion
// marker: existing files are skipped without contacting the search service.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/workspace"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Resolver looks up a single paper by identifier.
type Resolver interface {
	Lookup(ctx context.Context, id string) (types.Paper, error)
}

// Status is the outcome of one paper's retrieval.
type Status string

const (
	StatusDownloaded Status = "downloaded"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// ItemResult is the outcome for one paper identifier.
type ItemResult struct {
	PaperID string
	Path    string
	Status  Status
	Err     error
}

// BatchResult holds the outcome of a retrieval run, one item per selected
// paper in decision order.
type BatchResult struct {
	Items []ItemResult
}

func (r BatchResult) count(s Status) int {
	n := 0
	for _, it := range r.Items {
		if it.Status == s {
			n++
		}
	}
	return n
}

// Downloaded returns the number of documents fetched this run.
func (r BatchResult) Downloaded() int { return r.count(StatusDownloaded) }

// Skipped returns the number of documents already on disk.
func (r BatchResult) Skipped() int { return r.count(StatusSkipped) }

// Failed returns the number of papers that could not be retrieved.
func (r BatchResult) Failed() int { return r.count(StatusFailed) }

// HasFailures reports whether any paper failed.
func (r BatchResult) HasFailures() bool { return r.Failed() > 0 }

// Downloader runs the retrieval stage.
type Downloader struct {
	Resolver  Resolver
	Client    *http.Client
	UserAgent string

	// Delay spaces consecutive downloads.
	Delay time.Duration

	Log     zerolog.Logger
	Metrics *observability.Metrics
}

// DownloadSelected fetches the document of every paper in the decision at
// decisionPath into dirPath. Each paper is attempted independently; the
// returned error joins every per-paper failure and names each identifier.
func (d *Downloader) DownloadSelected(ctx context.Context, decisionPath, dirPath string) (BatchResult, error) {
	decision, err := workspace.ReadDecision(decisionPath)
	if err != nil {
		return BatchResult{}, err
	}
	if len(decision) == 0 {
		return BatchResult{}, fmt.Errorf("%w: selection decision %s is empty, nothing to download", types.ErrConfig, decisionPath)
	}

	var result BatchResult
	var errs []error
	fetched := 0
	for _, id := range decision.IDs() {
		log := observability.WithPaper(d.Log, id)
		item := ItemResult{PaperID: id, Path: workspace.DocumentPath(dirPath, id)}

		if workspace.Exists(item.Path) {
			item.Status = StatusSkipped
			log.Info().Str("path", item.Path).Msg("document exists, skipping")
		} else {
			if fetched > 0 && d.Delay > 0 {
				select {
				case <-ctx.Done():
					return result, ctx.Err()
				case <-time.After(d.Delay):
				}
			}
			fetched++

			if err := d.fetch(ctx, id, item.Path, log); err != nil {
				item.Status, item.Err = StatusFailed, err
				errs = append(errs, fmt.Errorf("paper %s: %w", id, err))
				log.Error().Err(err).Msg("download failed")
			} else {
				item.Status = StatusDownloaded
				log.Info().Str("path", item.Path).Msg("document downloaded")
			}
		}

		d.Metrics.Download(string(item.Status))
		result.Items = append(result.Items, item)
	}

	d.Log.Info().
		Int("downloaded", result.Downloaded()).
		Int("skipped", result.Skipped()).
		Int("failed", result.Failed()).
		Msg("retrieval done")
	return result, errors.Join(errs...)
}

func (d *Downloader) fetch(ctx context.Context, id, destPath string, log zerolog.Logger) error {
	paper, err := d.Resolver.Lookup(ctx, id)
	if err != nil {
		return fmt.Errorf("looking up paper: %w", err)
	}
	if paper.PDFURL == "" {
		return fmt.Errorf("search service returned no document link")
	}
	log.Debug().Str("url", paper.PDFURL).Msg("downloading")
	return d.downloadFile(ctx, paper.PDFURL, destPath, log)
}

// downloadFile streams url into destPath through a temporary file so a
// partial download never looks complete.
func (d *Downloader) downloadFile(ctx context.Context, url, destPath string, log zerolog.Logger) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}
	req.Header.Set("Accept", "application/pdf")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0, log)
	if err != nil {
		return fmt.Errorf("%w: HTTP request: %v", types.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d from %s", types.ErrTransport, resp.StatusCode, url)
	}
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		return fmt.Errorf("%w: %s returned %s instead of a document", types.ErrTransport, url, ct)
	}

	return workspace.CopyFileAtomic(destPath, resp.Body, 0o644)
}
