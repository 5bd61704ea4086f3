// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/workspace"
	"github.com/pdiddy/paper-digest/pkg/types"
)

type fakeTrigger struct {
	busy  atomic.Bool
	calls atomic.Int32
	done  chan struct{}
}

func (f *fakeTrigger) Trigger(ctx context.Context) error {
	f.calls.Add(1)
	if f.done != nil {
		close(f.done)
	}
	return nil
}

func (f *fakeTrigger) InFlight() bool { return f.busy.Load() }

func newTestServer(t *testing.T, trig Trigger) (*Server, workspace.Layout) {
	t.Helper()
	layout := workspace.Layout{Root: t.TempDir()}
	reg := prometheus.NewRegistry()
	observability.NewMetrics(reg).StageSkipped("snapshot")
	return New(context.Background(), ":0", layout, trig, reg, zerolog.Nop()), layout
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	trig := &fakeTrigger{}
	s, _ := newTestServer(t, trig)

	rec := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pipeline":"idle"`)

	trig.busy.Store(true)
	rec = do(t, s, http.MethodGet, "/healthz")
	assert.Contains(t, rec.Body.String(), `"pipeline":"running"`)
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t, &fakeTrigger{})
	rec := do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `paper_digest_stage_skips_total{stage="snapshot"} 1`)
}

func TestGetDigest(t *testing.T) {
	s, layout := newTestServer(t, &fakeTrigger{})
	day := time.Date(2024, 4, 12, 0, 0, 0, 0, time.Local)
	snap := layout.SnapshotPath(day)
	require.NoError(t, workspace.WriteSnapshot(snap, types.Snapshot{
		Topic: "Green",
		Queries: map[string]map[string]types.Paper{
			`all:"low carbon"`: {
				"p1": {ID: "p1", Title: "Carbon Budgets"},
				"p2": {ID: "p2", Title: "Heat Pumps"},
			},
		},
	}))
	decision := workspace.DecisionPath(snap)
	require.NoError(t, workspace.WriteDecision(decision, types.Decision{{PaperID: "p2"}, {PaperID: "p1"}}))
	require.NoError(t, workspace.WriteSummaries(workspace.SummaryPath(decision), map[string]types.SummaryRecord{
		"p2": {Summary: "Pumps heat.", KeyPoint1: "COP", KeyPoint2: "Cost"},
	}))

	for _, date := range []string{"2024-04-12", "20240412"} {
		rec := do(t, s, http.MethodGet, "/api/v1/digests/"+date)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp digestResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Green", resp.Topic)
		assert.Equal(t, "2024-04-12", resp.Date)
		assert.Equal(t, 2, resp.Papers)
		require.Len(t, resp.Entries, 2)
		assert.Equal(t, "Heat Pumps", resp.Entries[0].Title)
		require.NotNil(t, resp.Entries[0].Summary)
		assert.Equal(t, "COP", resp.Entries[0].Summary.KeyPoint1)
		assert.False(t, resp.Entries[1].Summarized)
		assert.Nil(t, resp.Entries[1].Summary)
	}
}

func TestGetDigestErrors(t *testing.T) {
	s, _ := newTestServer(t, &fakeTrigger{})

	rec := do(t, s, http.MethodGet, "/api/v1/digests/yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/digests/2024-04-13")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no digest for 2024-04-13")
}

func TestStartRun(t *testing.T) {
	trig := &fakeTrigger{done: make(chan struct{})}
	s, _ := newTestServer(t, trig)

	rec := do(t, s, http.MethodPost, "/api/v1/runs")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-trig.done:
	case <-time.After(2 * time.Second):
		t.Fatal("run was not triggered")
	}
	assert.EqualValues(t, 1, trig.calls.Load())
}

func TestStartRunBusy(t *testing.T) {
	trig := &fakeTrigger{}
	trig.busy.Store(true)
	s, _ := newTestServer(t, trig)

	rec := do(t, s, http.MethodPost, "/api/v1/runs")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, trig.calls.Load())
}

func TestStartRunWithoutPipeline(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/api/v1/runs")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
