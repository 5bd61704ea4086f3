// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/acquire"
	"github.com/pdiddy/paper-digest/internal/container"
	"github.com/pdiddy/paper-digest/internal/convert"
	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/search"
	"github.com/pdiddy/paper-digest/internal/selection"
	"github.com/pdiddy/paper-digest/internal/store"
	"github.com/pdiddy/paper-digest/internal/summarize"
	"github.com/pdiddy/paper-digest/internal/workspace"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Build wires a Pipeline against the live arXiv API and the configured LLM
// provider. cfg must already have defaults applied. Providers without a
// file-extraction API convert documents locally, which needs a container
// runtime with the markitdown image.
func Build(ctx context.Context, cfg types.DigestConfig, log zerolog.Logger, metrics *observability.Metrics) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := llm.New(cfg.LLM, cfg.APIKey, cfg.HTTP.Timeout, log)
	if err != nil {
		return nil, err
	}

	layout := workspace.Layout{Root: cfg.RootDir}
	files := provider.Files
	if files == nil {
		files, err = localFiles(ctx, cfg, layout)
		if err != nil {
			return nil, err
		}
	}

	arxiv := search.NewArxivClient(cfg.HTTP, log)
	return &Pipeline{
		Config: cfg,
		Layout: layout,
		Store: &store.Store{
			Searcher: arxiv,
			Layout:   layout,
			Log:      log,
			Metrics:  metrics,
		},
		Selector: &selection.Selector{
			Chat:         provider.Chat,
			Model:        provider.SelectModel,
			SystemPrompt: provider.SystemPrompt,
			Log:          log,
			Metrics:      metrics,
		},
		Downloader: &acquire.Downloader{
			Resolver:  arxiv,
			Client:    &http.Client{Timeout: cfg.HTTP.Timeout},
			UserAgent: cfg.HTTP.UserAgent,
			Delay:     cfg.HTTP.DownloadDelay,
			Log:       log,
			Metrics:   metrics,
		},
		Summarizer: &summarize.Summarizer{
			Chat:         provider.Chat,
			Files:        files,
			Model:        provider.SummaryModel,
			SystemPrompt: provider.SystemPrompt,
			Language:     cfg.Language,
			Log:          log,
			Metrics:      metrics,
		},
		Log:     log,
		Metrics: metrics,
	}, nil
}

func localFiles(ctx context.Context, cfg types.DigestConfig, layout workspace.Layout) (llm.FileStore, error) {
	rt, err := container.DetectRuntime(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: provider %s has no file extraction API and %v", types.ErrConfig, cfg.LLM.Provider, err)
	}
	conv, err := convert.NewMarkitdownConverter(ctx, rt, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrConfig, err)
	}
	dir := cfg.LLM.MarkdownDir
	if dir == "" {
		dir = layout.MarkdownDir()
	}
	return &convert.LocalFiles{Converter: conv, Dir: dir}, nil
}
