// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize obtains a summary record for every selected paper.
// Records come from the global cache when present; otherwise the paper's
// document is registered with the provider's file store, summarized by the
// LLM, and written through to the cache before the next paper is touched.
// Summarization cost is therefore paid at most once per paper ID for the
// lifetime of the cache file.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/workspace"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Summarizer runs the summarization stage.
type Summarizer struct {
	Chat         llm.Chatter
	Files        llm.FileStore
	Model        string
	SystemPrompt string

	// Language is the language summaries are written in.
	Language string

	Log     zerolog.Logger
	Metrics *observability.Metrics
}

// Summarize produces the per-run summary file for the decision at
// decisionPath and returns its path. The global cache lives at
// papersRoot/total_summary.json; documents are read from dailyDir.
//
// A paper whose document is missing is reported and skipped; the per-run
// file is still written for the rest and the returned error names every
// skipped paper. Transport and parse failures stop the stage at once
// without writing the per-run file; summaries finished before the failure
// stay in the cache.
func (s *Summarizer) Summarize(ctx context.Context, decisionPath, papersRoot, dailyDir string) (string, error) {
	decision, err := workspace.ReadDecision(decisionPath)
	if err != nil {
		return "", err
	}

	cache, err := OpenCache(workspace.CachePath(papersRoot))
	if err != nil {
		return "", err
	}

	run := make(map[string]types.SummaryRecord, len(decision))
	files := &fileIndex{store: s.Files}
	var missing []error
	for _, id := range decision.IDs() {
		log := observability.WithPaper(s.Log, id)

		if rec, ok := cache.Get(id); ok {
			s.Metrics.CacheLookup(true)
			log.Info().Msg("summary cached, reusing")
			run[id] = rec
			continue
		}
		s.Metrics.CacheLookup(false)

		rec, err := s.summarizeOne(ctx, files, id, dailyDir, log)
		if errors.Is(err, types.ErrMissingDocument) {
			log.Error().Err(err).Msg("skipping paper")
			missing = append(missing, err)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("summarizing %s: %w", id, err)
		}

		if err := cache.Put(id, rec); err != nil {
			return "", err
		}
		run[id] = rec
		log.Info().Msg("summary done")
	}

	summaryPath := workspace.SummaryPath(decisionPath)
	if err := workspace.WriteSummaries(summaryPath, run); err != nil {
		return "", err
	}
	s.Log.Info().
		Str("path", summaryPath).
		Int("summaries", len(run)).
		Int("cached_total", cache.Len()).
		Msg("summarization done")
	return summaryPath, errors.Join(missing...)
}

func (s *Summarizer) summarizeOne(ctx context.Context, files *fileIndex, id, dailyDir string, log zerolog.Logger) (types.SummaryRecord, error) {
	docPath := workspace.DocumentPath(dailyDir, id)
	if !workspace.Exists(docPath) {
		return types.SummaryRecord{}, fmt.Errorf("%w: paper %s has no document at %s", types.ErrMissingDocument, id, docPath)
	}

	content, err := files.content(ctx, docPath, log)
	if err != nil {
		return types.SummaryRecord{}, err
	}

	prompt, err := renderPrompt(workspace.DocumentName(id), s.language())
	if err != nil {
		return types.SummaryRecord{}, fmt.Errorf("rendering prompt: %w", err)
	}

	req := llm.ChatRequest{Model: s.Model, User: prompt}
	if s.SystemPrompt != "" {
		req.System = append(req.System, s.SystemPrompt)
	}
	req.System = append(req.System, content)

	start := time.Now()
	reply, err := s.Chat.Chat(ctx, req)
	s.Metrics.LLMDone("summarize", start, err)
	if err != nil {
		return types.SummaryRecord{}, err
	}

	var rec types.SummaryRecord
	if err := llm.DecodeJSON(reply, &rec); err != nil {
		return types.SummaryRecord{}, err
	}
	if err := rec.Validate(); err != nil {
		return types.SummaryRecord{}, fmt.Errorf("%w: %v", types.ErrParse, err)
	}
	return rec, nil
}

func (s *Summarizer) language() string {
	if s.Language == "" {
		return "English"
	}
	return s.Language
}

// fileIndex resolves a local document to its file-store text, reusing a
// stored file with the same name before uploading. The store's listing is
// fetched once per stage run.
type fileIndex struct {
	store  llm.FileStore
	byName map[string]string
}

func (f *fileIndex) content(ctx context.Context, docPath string, log zerolog.Logger) (string, error) {
	if f.byName == nil {
		listed, err := f.store.ListFiles(ctx)
		if err != nil {
			return "", fmt.Errorf("listing stored files: %w", err)
		}
		f.byName = make(map[string]string, len(listed))
		for _, rf := range listed {
			if _, dup := f.byName[rf.Filename]; !dup {
				f.byName[rf.Filename] = rf.ID
			}
		}
	}

	name := filepath.Base(docPath)
	fileID, ok := f.byName[name]
	if ok {
		log.Debug().Str("file_id", fileID).Msg("document already stored, reusing")
	} else {
		rf, err := f.store.UploadFile(ctx, docPath)
		if err != nil {
			return "", fmt.Errorf("uploading document: %w", err)
		}
		fileID = rf.ID
		f.byName[name] = fileID
		log.Debug().Str("file_id", fileID).Msg("document uploaded")
	}

	content, err := f.store.FileContent(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("fetching document content: %w", err)
	}
	return content, nil
}
