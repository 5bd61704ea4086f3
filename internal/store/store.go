// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists one day's search results as a topic snapshot. A
// snapshot is written at most once per calendar day: when today's file
// exists it is reused verbatim and the search service is not queried.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/workspace"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Searcher returns papers for a boolean query string, newest submissions
// first.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]types.Paper, error)
}

// Store writes daily snapshots under a workspace layout.
type Store struct {
	Searcher Searcher
	Layout   workspace.Layout
	Log      zerolog.Logger
	Metrics  *observability.Metrics

	// Now returns the current time. Nil uses time.Now.
	Now func() time.Time
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// FetchAndSnapshot searches every query and persists the results as today's
// snapshot, returning its path. If today's snapshot already exists its path
// is returned without any search call, whatever the arguments.
func (s *Store) FetchAndSnapshot(ctx context.Context, topic string, queries []string, maxResults int) (string, error) {
	path := s.Layout.SnapshotPath(s.now())
	if workspace.Exists(path) {
		s.Log.Info().Str("path", path).Msg("snapshot for today exists, reusing")
		s.Metrics.StageSkipped("snapshot")
		return path, nil
	}

	if len(queries) == 0 {
		return "", fmt.Errorf("%w: no queries to search", types.ErrConfig)
	}

	snap := types.Snapshot{
		Topic:   topic,
		Queries: make(map[string]map[string]types.Paper, len(queries)),
	}
	for _, q := range queries {
		papers, err := s.Searcher.Search(ctx, q, maxResults)
		s.Metrics.SearchDone(len(papers), err)
		if err != nil {
			return "", fmt.Errorf("searching %q: %w", q, err)
		}

		byID := make(map[string]types.Paper, len(papers))
		for _, p := range papers {
			byID[p.ID] = p
		}
		snap.Queries[queryKey(q)] = byID
		s.Log.Info().Str("query", q).Int("papers", len(byID)).Msg("query searched")
	}

	if err := workspace.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	s.Log.Info().Str("path", path).Int("papers", len(snap.Flatten())).Msg("snapshot saved")
	return path, nil
}

// queryKey names a query in the snapshot. A query wrapped whole in double
// quotes loses that one pair; quotes inside the query are kept.
func queryKey(q string) string {
	q = strings.TrimSpace(q)
	if len(q) >= 2 && strings.HasPrefix(q, `"`) && strings.HasSuffix(q, `"`) {
		return q[1 : len(q)-1]
	}
	return q
}
