// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/internal/acquire"
	"github.com/pdiddy/paper-digest/internal/history"
	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/query"
	"github.com/pdiddy/paper-digest/internal/selection"
	"github.com/pdiddy/paper-digest/internal/store"
	"github.com/pdiddy/paper-digest/internal/summarize"
	"github.com/pdiddy/paper-digest/internal/workspace"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// fakeArxiv serves both searches and identifier lookups.
type fakeArxiv struct {
	papers   []types.Paper
	searches int
	lookups  int
}

func (f *fakeArxiv) Search(_ context.Context, _ string, maxResults int) ([]types.Paper, error) {
	f.searches++
	if maxResults < len(f.papers) {
		return f.papers[:maxResults], nil
	}
	return f.papers, nil
}

func (f *fakeArxiv) Lookup(_ context.Context, id string) (types.Paper, error) {
	f.lookups++
	for _, p := range f.papers {
		if p.ID == id {
			return p, nil
		}
	}
	return types.Paper{}, fmt.Errorf("no paper %s", id)
}

type countingChat struct {
	reply string
	calls int
}

func (c *countingChat) Chat(context.Context, llm.ChatRequest) (string, error) {
	c.calls++
	return c.reply, nil
}

type fakeFiles struct{ uploads int }

func (f *fakeFiles) ListFiles(context.Context) ([]llm.RemoteFile, error) { return nil, nil }

func (f *fakeFiles) UploadFile(_ context.Context, path string) (llm.RemoteFile, error) {
	f.uploads++
	return llm.RemoteFile{ID: filepath.Base(path), Filename: filepath.Base(path)}, nil
}

func (f *fakeFiles) FileContent(_ context.Context, id string) (string, error) {
	return "text of " + id, nil
}

type harness struct {
	pipe     *Pipeline
	arxiv    *fakeArxiv
	selChat  *countingChat
	sumChat  *countingChat
	files    *fakeFiles
	metrics  *observability.Metrics
	pdfHits  int
	today    time.Time
	rootPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{today: time.Date(2024, 4, 12, 9, 0, 0, 0, time.Local), rootPath: t.TempDir()}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.pdfHits++
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprintf(w, "%%PDF-1.4 %s", r.URL.Path)
	}))
	t.Cleanup(srv.Close)

	h.arxiv = &fakeArxiv{papers: []types.Paper{
		{ID: "2404.1v1", Title: "Carbon Budgets", Abstract: "a", PDFURL: srv.URL + "/pdf/2404.1v1"},
		{ID: "2404.2v1", Title: "Heat Pumps", Abstract: "b", PDFURL: srv.URL + "/pdf/2404.2v1"},
		{ID: "2404.3v1", Title: "Timber Towers", Abstract: "c", PDFURL: srv.URL + "/pdf/2404.3v1"},
	}}
	h.selChat = &countingChat{reply: `[{"paper_id": "2404.1v1"}, {"paper_id": "2404.3v1"}]`}
	h.sumChat = &countingChat{reply: `{"summary": "fresh", "keypoints_1": "k1", "keypoints_2": "k2"}`}
	h.files = &fakeFiles{}
	h.metrics = observability.NewMetrics(prometheus.NewRegistry())

	layout := workspace.Layout{Root: h.rootPath}
	log := zerolog.Nop()
	h.pipe = &Pipeline{
		Config: types.DigestConfig{
			Topic:              "Green",
			Keyword:            map[string]string{query.Key(0, 0): "low carbon", query.Key(0, 1): "", query.Key(0, 2): "", query.Key(0, 3): ""},
			MaxResultsPerQuery: 3,
			JudgeNumber:        2,
			Language:           "English",
		},
		Layout:     layout,
		Store:      &store.Store{Searcher: h.arxiv, Layout: layout, Log: log, Metrics: h.metrics, Now: func() time.Time { return h.today }},
		Selector:   &selection.Selector{Chat: h.selChat, Log: log, Metrics: h.metrics},
		Downloader: &acquire.Downloader{Resolver: h.arxiv, Client: srv.Client(), Log: log, Metrics: h.metrics},
		Summarizer: &summarize.Summarizer{Chat: h.sumChat, Files: h.files, Log: log, Metrics: h.metrics},
		Log:        log,
		Metrics:    h.metrics,
		NewRunID:   func() string { return "run-1" },
	}
	return h
}

func TestRunEndToEnd(t *testing.T) {
	h := newHarness(t)
	cached := types.SummaryRecord{Summary: "cached", KeyPoint1: "c1", KeyPoint2: "c2"}
	require.NoError(t, workspace.WriteSummaries(workspace.CachePath(h.pipe.Layout.PapersRoot()), map[string]types.SummaryRecord{
		"2404.1v1": cached,
	}))

	res, err := h.pipe.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, []string{`all:"low carbon"`}, res.Queries)
	assert.Equal(t, h.pipe.Layout.SnapshotPath(h.today), res.SnapshotPath)
	assert.Equal(t, 1, h.arxiv.searches)
	assert.Equal(t, 1, h.selChat.calls)
	assert.Equal(t, 2, res.Downloads.Downloaded())
	assert.Equal(t, 1, h.sumChat.calls, "the cached paper needs no LLM call")

	snap, err := workspace.ReadSnapshot(res.SnapshotPath)
	require.NoError(t, err)
	assert.Equal(t, []string{`all:"low carbon"`}, snap.QueryNames())
	assert.Len(t, snap.Flatten(), 3)

	run, err := workspace.ReadSummaries(res.SummaryPath)
	require.NoError(t, err)
	assert.Equal(t, map[string]types.SummaryRecord{
		"2404.1v1": cached,
		"2404.3v1": {Summary: "fresh", KeyPoint1: "k1", KeyPoint2: "k2"},
	}, run)

	cache, err := workspace.ReadSummaries(workspace.CachePath(h.pipe.Layout.PapersRoot()))
	require.NoError(t, err)
	assert.Len(t, cache, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CacheLookups.WithLabelValues("hit")))
}

func TestRunIsIdempotentWithinADay(t *testing.T) {
	h := newHarness(t)
	first, err := h.pipe.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, h.sumChat.calls)

	h.pipe.Config.Keyword[query.Key(0, 0)] = "something else"
	second, err := h.pipe.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.SnapshotPath, second.SnapshotPath)
	assert.Equal(t, 1, h.arxiv.searches)
	assert.Equal(t, 1, h.selChat.calls)
	assert.Equal(t, 2, h.arxiv.lookups)
	assert.Equal(t, 2, h.pdfHits)
	assert.Equal(t, 2, second.Downloads.Skipped())
	assert.Equal(t, 2, h.sumChat.calls)
}

func TestRunSelectionPreconditionMakesNoCalls(t *testing.T) {
	h := newHarness(t)
	h.pipe.Config.JudgeNumber = 4

	_, err := h.pipe.Run(context.Background())
	require.ErrorIs(t, err, types.ErrConfig)
	assert.Zero(t, h.arxiv.searches)
	assert.False(t, workspace.Exists(h.pipe.Layout.SnapshotPath(h.today)), "no snapshot may be written")
	assert.Zero(t, h.selChat.calls)
	assert.Zero(t, h.arxiv.lookups)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Runs.WithLabelValues("error")))
}

func TestRunMalformedKeywords(t *testing.T) {
	h := newHarness(t)
	h.pipe.Config.Keyword = map[string]string{"k-0-0": "x"}

	_, err := h.pipe.Run(context.Background())
	require.ErrorIs(t, err, types.ErrConfig)
	assert.ErrorIs(t, err, query.ErrMalformed)
	assert.Zero(t, h.arxiv.searches)
}

func TestRunContinuesPastDownloadFailure(t *testing.T) {
	h := newHarness(t)
	h.arxiv.papers[2].PDFURL = ""

	res, err := h.pipe.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMissingDocument)
	assert.True(t, strings.Contains(err.Error(), "2404.3v1"))
	assert.Equal(t, 1, res.Downloads.Failed())

	run, rerr := workspace.ReadSummaries(res.SummaryPath)
	require.NoError(t, rerr)
	assert.Len(t, run, 1)
	assert.Contains(t, run, "2404.1v1")
}

func TestRunIndexesHistory(t *testing.T) {
	h := newHarness(t)
	hs, err := history.Open(h.pipe.Layout.HistoryPath(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { hs.Close() })
	h.pipe.History = hs

	_, err = h.pipe.Run(context.Background())
	require.NoError(t, err)

	results, err := hs.Search(context.Background(), history.QueryOptions{SelectedOnly: true})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "fresh", r.Summary)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	_, err := Build(context.Background(), types.DigestConfig{}, zerolog.Nop(), nil)
	assert.ErrorIs(t, err, types.ErrConfig)
}

func TestBuildMoonshot(t *testing.T) {
	cfg := types.DigestConfig{
		APIKey:             "sk-test",
		Topic:              "Green",
		Keyword:            map[string]string{"k-0-0": "a", "k-0-1": "", "k-0-2": "", "k-0-3": ""},
		RootDir:            t.TempDir(),
		MaxResultsPerQuery: 2,
		JudgeNumber:        1,
	}
	cfg.ApplyDefaults()

	p, err := Build(context.Background(), cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, "moonshot-v1-8k", p.Selector.Model)
	assert.Equal(t, "moonshot-v1-32k", p.Summarizer.Model)
	assert.NotNil(t, p.Summarizer.Files)
	assert.Equal(t, cfg.RootDir, p.Layout.Root)
}
