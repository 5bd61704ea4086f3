// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package selection asks an LLM to pick a bounded subset of a snapshot's
// papers and persists the decision next to the snapshot. A stage run whose
// decision file already exists returns it without calling the model.
package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/workspace"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Selector runs the selection stage.
type Selector struct {
	Chat         llm.Chatter
	Model        string
	SystemPrompt string
	Log          zerolog.Logger
	Metrics      *observability.Metrics
}

// Select chooses keepCount papers from the snapshot at snapshotPath and
// returns the decision path. keepCount must be between 1 and paperCount;
// violations fail before any I/O.
func (s *Selector) Select(ctx context.Context, snapshotPath string, paperCount, keepCount int) (string, error) {
	if err := CheckCounts(paperCount, keepCount); err != nil {
		return "", err
	}

	decisionPath := workspace.DecisionPath(snapshotPath)
	if workspace.Exists(decisionPath) {
		s.Log.Info().Str("path", decisionPath).Msg("selection decision exists, reusing")
		s.Metrics.StageSkipped("selection")
		return decisionPath, nil
	}

	snap, err := workspace.ReadSnapshot(snapshotPath)
	if err != nil {
		return "", err
	}
	papers := snap.Flatten()
	if len(papers) == 0 {
		return "", fmt.Errorf("%w: snapshot %s holds no papers", types.ErrConfig, snapshotPath)
	}

	candidates := make([]candidate, len(papers))
	known := make(map[string]bool, len(papers))
	for i, p := range papers {
		candidates[i] = candidate{ID: p.ID, Title: p.Title, Abstract: p.Abstract}
		known[p.ID] = true
	}

	prompt, err := renderPrompt(candidates, keepCount)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	req := llm.ChatRequest{Model: s.Model, User: prompt}
	if s.SystemPrompt != "" {
		req.System = []string{s.SystemPrompt}
	}

	start := time.Now()
	reply, err := s.Chat.Chat(ctx, req)
	s.Metrics.LLMDone("select", start, err)
	if err != nil {
		return "", fmt.Errorf("selecting papers: %w", err)
	}

	decision, err := parseDecision(reply, known, keepCount)
	if err != nil {
		return "", err
	}
	if len(decision) < keepCount {
		s.Log.Warn().Int("requested", keepCount).Int("chosen", len(decision)).Msg("model chose fewer papers than requested")
	}

	if err := workspace.WriteDecision(decisionPath, decision); err != nil {
		return "", err
	}
	s.Log.Info().
		Str("path", decisionPath).
		Int("pool", len(papers)).
		Strs("paper_ids", decision.IDs()).
		Msg("selection done")
	return decisionPath, nil
}

// CheckCounts reports an ErrConfig unless keepCount is between 1 and
// paperCount. Callers run it before searching so a bad configuration fails
// without any client call.
func CheckCounts(paperCount, keepCount int) error {
	if keepCount < 1 {
		return fmt.Errorf("%w: selection count must be at least 1, got %d", types.ErrConfig, keepCount)
	}
	if keepCount > paperCount {
		return fmt.Errorf("%w: selection count %d exceeds paper count %d", types.ErrConfig, keepCount, paperCount)
	}
	return nil
}

// parseDecision decodes the model's reply. IDs absent from the snapshot make
// the reply invalid; duplicates are dropped and the list is capped at keep.
func parseDecision(reply string, known map[string]bool, keep int) (types.Decision, error) {
	var raw types.Decision
	if err := llm.DecodeJSON(reply, &raw); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(raw))
	decision := make(types.Decision, 0, keep)
	for _, sp := range raw {
		if !known[sp.PaperID] {
			return nil, fmt.Errorf("%w: model chose unknown paper %q", types.ErrParse, sp.PaperID)
		}
		if seen[sp.PaperID] {
			continue
		}
		seen[sp.PaperID] = true
		if len(decision) < keep {
			decision = append(decision, sp)
		}
	}
	if len(decision) == 0 {
		return nil, fmt.Errorf("%w: model chose no papers", types.ErrParse)
	}
	return decision, nil
}
