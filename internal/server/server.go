// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes a running scheduler over HTTP: liveness, Prometheus
// metrics, finished digests by date, and on-demand run triggers.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/report"
	"github.com/pdiddy/paper-digest/internal/schedule"
	"github.com/pdiddy/paper-digest/internal/workspace"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Trigger starts pipeline runs on demand.
type Trigger interface {
	Trigger(ctx context.Context) error
	InFlight() bool
}

// Server is the status and control API.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	layout     workspace.Layout
	trigger    Trigger
	gatherer   prometheus.Gatherer
	logger     zerolog.Logger

	// runCtx bounds runs started over HTTP; it outlives the request.
	runCtx context.Context
}

// New builds a server listening on addr. Runs triggered through the API
// are cancelled with runCtx. A nil gatherer disables /metrics.
func New(runCtx context.Context, addr string, layout workspace.Layout, trigger Trigger, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	s := &Server{
		layout:   layout,
		trigger:  trigger,
		gatherer: gatherer,
		logger:   logger.With().Str("component", "http-server").Logger(),
		runCtx:   runCtx,
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/digests/{date}", s.getDigest)
		r.Post("/runs", s.startRun)
	})
	return r
}

// Start listens and serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := "idle"
	if s.trigger != nil && s.trigger.InFlight() {
		status = "running"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "pipeline": status})
}

type digestEntry struct {
	types.Paper
	Summary    *types.SummaryRecord `json:"summary,omitempty"`
	Summarized bool                 `json:"summarized"`
}

type digestResponse struct {
	Topic   string        `json:"topic"`
	Date    string        `json:"date"`
	Queries []string      `json:"queries"`
	Papers  int           `json:"papers"`
	Entries []digestEntry `json:"entries"`
}

func (s *Server) getDigest(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	path := s.layout.SnapshotPath(day)
	if !workspace.Exists(path) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no digest for %s", day.Format(types.DateLayout)))
		return
	}
	rep, err := report.Load(path)
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("loading digest")
		writeError(w, http.StatusInternalServerError, "failed to load digest")
		return
	}

	resp := digestResponse{
		Topic:   rep.Topic,
		Date:    day.Format(types.DateLayout),
		Queries: rep.Queries,
		Papers:  len(rep.Papers),
		Entries: make([]digestEntry, 0, len(rep.Entries)),
	}
	for _, e := range rep.Entries {
		de := digestEntry{Paper: e.Paper, Summarized: e.Summarized}
		if e.Summarized {
			rec := e.Summary
			de.Summary = &rec
		}
		resp.Entries = append(resp.Entries, de)
	}
	writeJSON(w, http.StatusOK, resp)
}

// startRun begins a pipeline run in the background and answers 202, or 409
// when a run is already in flight.
func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "no pipeline configured")
		return
	}
	if s.trigger.InFlight() {
		writeError(w, http.StatusConflict, schedule.ErrBusy.Error())
		return
	}

	reqID := middleware.GetReqID(r.Context())
	go func() {
		log := s.logger.With().Str("request_id", reqID).Logger()
		err := s.trigger.Trigger(s.runCtx)
		switch {
		case errors.Is(err, schedule.ErrBusy):
			log.Warn().Msg("triggered run skipped, another run started first")
		case err != nil:
			log.Error().Err(err).Msg("triggered run failed")
		default:
			log.Info().Msg("triggered run done")
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "request_id": reqID})
}

// parseDay accepts 2024-04-12 or 20240412, in local time.
func parseDay(s string) (time.Time, error) {
	for _, layout := range []string{types.DateLayout, "20060102"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
