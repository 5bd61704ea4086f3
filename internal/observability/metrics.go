// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "paper_digest"

// Metrics holds the pipeline's Prometheus collectors. All methods are safe
// on a nil receiver so stages can run without metrics.
type Metrics struct {
	// SearchRequests counts search-service queries, labeled by outcome.
	SearchRequests *prometheus.CounterVec

	// PapersFound counts papers returned by the search service.
	PapersFound prometheus.Counter

	// LLMRequests counts LLM calls, labeled by operation and outcome.
	LLMRequests *prometheus.CounterVec

	// LLMRequestDuration observes LLM call latency, labeled by operation.
	LLMRequestDuration *prometheus.HistogramVec

	// Downloads counts document retrievals, labeled by status
	// (downloaded, skipped, failed).
	Downloads *prometheus.CounterVec

	// CacheLookups counts global summary cache lookups, labeled by result
	// (hit, miss).
	CacheLookups *prometheus.CounterVec

	// StageSkips counts idempotent stage skips, labeled by stage.
	StageSkips *prometheus.CounterVec

	// Runs counts pipeline runs, labeled by outcome.
	Runs *prometheus.CounterVec

	// RunDuration observes end-to-end pipeline duration in seconds.
	RunDuration prometheus.Histogram
}

// NewMetrics registers the pipeline collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SearchRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search service queries by outcome",
		}, []string{"outcome"}),
		PapersFound: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_found_total",
			Help:      "Papers returned by the search service",
		}),
		LLMRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "LLM requests by operation and outcome",
		}, []string{"operation", "outcome"}),
		LLMRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request latency by operation",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"operation"}),
		Downloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Document retrievals by status",
		}, []string{"status"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_cache_lookups_total",
			Help:      "Global summary cache lookups by result",
		}, []string{"result"}),
		StageSkips: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_skips_total",
			Help:      "Stages skipped because their artifact already existed",
		}, []string{"stage"}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome",
		}, []string{"outcome"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end pipeline duration",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// SearchDone records one search query and the number of papers it returned.
func (m *Metrics) SearchDone(found int, err error) {
	if m == nil {
		return
	}
	m.SearchRequests.WithLabelValues(outcome(err)).Inc()
	m.PapersFound.Add(float64(found))
}

// LLMDone records one LLM call.
func (m *Metrics) LLMDone(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.LLMRequests.WithLabelValues(operation, outcome(err)).Inc()
	m.LLMRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Download records one retrieval status.
func (m *Metrics) Download(status string) {
	if m == nil {
		return
	}
	m.Downloads.WithLabelValues(status).Inc()
}

// CacheLookup records a global cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// StageSkipped records an idempotent skip.
func (m *Metrics) StageSkipped(stage string) {
	if m == nil {
		return
	}
	m.StageSkips.WithLabelValues(stage).Inc()
}

// RunDone records a finished pipeline run.
func (m *Metrics) RunDone(start time.Time, err error) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome(err)).Inc()
	m.RunDuration.Observe(time.Since(start).Seconds())
}
