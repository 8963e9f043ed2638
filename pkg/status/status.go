/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package status serves the health, scheduler state and triage contents of a
// running crawler over HTTP.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/carverauto/vmminer/pkg/logger"
	"github.com/carverauto/vmminer/pkg/models"
	"github.com/carverauto/vmminer/pkg/scheduler"
	"github.com/carverauto/vmminer/pkg/version"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

var errListenAddrRequired = errors.New("status.listen_addr is required")

// Config is the status section of the service configuration.
type Config struct {
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
}

func (c *Config) Enabled() bool {
	return c != nil && c.ListenAddr != ""
}

// TriageStore is the triage set read and drained by the API.
type TriageStore interface {
	Snapshot() map[string]*models.MachineRecord
	Get(name string) (*models.MachineRecord, bool)
	Drain() int
	Len() int
}

// ReportSource returns the most recent cycle report, or nil.
type ReportSource interface {
	LastReport() *models.CycleReport
}

// SchedulerSource reports the scheduler state.
type SchedulerSource interface {
	Status() scheduler.Status
}

type errorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type statusResponse struct {
	Version    string              `json:"version"`
	StartedAt  time.Time           `json:"started_at"`
	Scheduler  *scheduler.Status   `json:"scheduler,omitempty"`
	LastCycle  *models.CycleReport `json:"last_cycle,omitempty"`
	TriageSize int                 `json:"triage_size"`
}

type triageResponse struct {
	Count   int                              `json:"count"`
	Entries map[string]*models.MachineRecord `json:"entries"`
}

type drainResponse struct {
	Drained int `json:"drained"`
}

// Server is the status HTTP API. It implements lifecycle.Service.
type Server struct {
	addr      string
	router    chi.Router
	triage    TriageStore
	reports   ReportSource
	scheduler SchedulerSource
	logger    logger.Logger
	startedAt time.Time

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// NewServer builds the API. sched may be nil when no scheduler runs.
func NewServer(cfg *Config, triage TriageStore, reports ReportSource, sched SchedulerSource,
	log logger.Logger) (*Server, error) {
	if !cfg.Enabled() {
		return nil, errListenAddrRequired
	}

	s := &Server{
		addr:      cfg.ListenAddr,
		triage:    triage,
		reports:   reports,
		scheduler: sched,
		logger:    log,
		startedAt: time.Now(),
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)

	r.Route("/triage", func(r chi.Router) {
		r.Get("/", s.handleListTriage)
		r.Delete("/", s.handleDrainTriage)
		r.Get("/{name}", s.handleGetTriage)
	})

	s.router = r
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until ctx is cancelled
// or the server fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	s.mu.Lock()
	s.srv = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Status API listening")

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	}
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}

// Addr returns the bound address once Start has listened.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Status API request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Version:    version.GetFullVersion(),
		StartedAt:  s.startedAt,
		TriageSize: s.triage.Len(),
	}

	if s.scheduler != nil {
		st := s.scheduler.Status()
		resp.Scheduler = &st
	}

	if s.reports != nil {
		resp.LastCycle = s.reports.LastReport()
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTriage(w http.ResponseWriter, _ *http.Request) {
	entries := s.triage.Snapshot()

	s.writeJSON(w, http.StatusOK, triageResponse{Count: len(entries), Entries: entries})
}

func (s *Server) handleGetTriage(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, "invalid machine name", http.StatusBadRequest)

		return
	}

	rec, ok := s.triage.Get(name)
	if !ok {
		s.writeError(w, "machine not in triage", http.StatusNotFound)

		return
	}

	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDrainTriage(w http.ResponseWriter, _ *http.Request) {
	n := s.triage.Drain()

	s.logger.Warn().Int("drained", n).Msg("Triage drained through status API")
	s.writeJSON(w, http.StatusOK, drainResponse{Drained: n})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, status int) {
	s.writeJSON(w, status, errorResponse{Message: message, Status: status})
}
