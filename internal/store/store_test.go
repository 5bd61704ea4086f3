// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/internal/workspace"
	"github.com/pdiddy/paper-digest/pkg/types"
)

type fakeSearcher struct {
	calls   []string
	results map[string][]types.Paper
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, query string, maxResults int) ([]types.Paper, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s|%d", query, maxResults))
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var day = time.Date(2024, 4, 12, 9, 0, 0, 0, time.Local)

func newStore(t *testing.T, s Searcher) *Store {
	t.Helper()
	return &Store{
		Searcher: s,
		Layout:   workspace.Layout{Root: t.TempDir()},
		Log:      zerolog.Nop(),
		Now:      fixedClock(day),
	}
}

func TestFetchAndSnapshot(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]types.Paper{
		`"low carbon"`:      {{ID: "a1", Title: "A"}, {ID: "a2", Title: "B"}},
		`all:"green roofs"`: {{ID: "b1", Title: "C"}},
	}}
	st := newStore(t, fs)

	path, err := st.FetchAndSnapshot(context.Background(), "Green", []string{`"low carbon"`, `all:"green roofs"`}, 2)
	require.NoError(t, err)
	assert.Equal(t, st.Layout.SnapshotPath(day), path)
	assert.Equal(t, []string{`"low carbon"|2`, `all:"green roofs"|2`}, fs.calls)

	snap, err := workspace.ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, "Green", snap.Topic)
	require.Contains(t, snap.Queries, "low carbon", "surrounding quotes are stripped from query keys")
	assert.Len(t, snap.Queries["low carbon"], 2)
	assert.Equal(t, "C", snap.Queries[`all:"green roofs"`]["b1"].Title)
}

func TestFetchAndSnapshotIdempotentPerDay(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]types.Paper{
		`all:"x"`: {{ID: "x1"}},
	}}
	st := newStore(t, fs)

	first, err := st.FetchAndSnapshot(context.Background(), "T", []string{`all:"x"`}, 1)
	require.NoError(t, err)
	before, err := os.ReadFile(first)
	require.NoError(t, err)

	fs.results[`all:"y"`] = []types.Paper{{ID: "y1"}}
	second, err := st.FetchAndSnapshot(context.Background(), "Other topic", []string{`all:"y"`}, 5)
	require.NoError(t, err)

	after, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, before, after)
	assert.Len(t, fs.calls, 1, "second call on the same day must not search")
}

func TestFetchAndSnapshotNewDay(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]types.Paper{`all:"x"`: {{ID: "x1"}}}}
	st := newStore(t, fs)

	first, err := st.FetchAndSnapshot(context.Background(), "T", []string{`all:"x"`}, 1)
	require.NoError(t, err)

	st.Now = fixedClock(day.AddDate(0, 0, 1))
	second, err := st.FetchAndSnapshot(context.Background(), "T", []string{`all:"x"`}, 1)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Len(t, fs.calls, 2)
}

func TestFetchAndSnapshotNoQueries(t *testing.T) {
	fs := &fakeSearcher{}
	st := newStore(t, fs)

	_, err := st.FetchAndSnapshot(context.Background(), "T", nil, 1)
	require.ErrorIs(t, err, types.ErrConfig)
	assert.Empty(t, fs.calls)
}

func TestFetchAndSnapshotSearchFailureWritesNothing(t *testing.T) {
	fs := &fakeSearcher{err: fmt.Errorf("%w: connection refused", types.ErrTransport)}
	st := newStore(t, fs)

	_, err := st.FetchAndSnapshot(context.Background(), "T", []string{`all:"x"`}, 1)
	require.True(t, errors.Is(err, types.ErrTransport))
	assert.False(t, workspace.Exists(st.Layout.SnapshotPath(day)))
}

func TestQueryKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`"low carbon"`, "low carbon"},
		{`all:"green roofs"`, `all:"green roofs"`},
		{`all:"low carbon" AND ti:"policy"`, `all:"low carbon" AND ti:"policy"`},
		{` "padded" `, "padded"},
		{`"`, `"`},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, queryKey(tt.in), tt.in)
	}
}
