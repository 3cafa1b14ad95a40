// Package bench serves the host-side bench surface: event injection, serial
// RX injection, state inspection, DOT export and Prometheus metrics.
package bench

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comalice/rovercore/internal/core"
	"github.com/comalice/rovercore/internal/primitives"
	"github.com/comalice/rovercore/realtime"
)

// maxRXBody caps how much of a request body is read for /rx; only the first
// primitives.RecordSize bytes are queued.
const maxRXBody = 4096

// Machine is the state machine surface used by the bench.
type Machine interface {
	Post(bits core.Event)
	State() core.State
	Snapshot() core.MachineSnapshot
	Recover(ctx context.Context) error
	Visualize() string
}

// Scheduler is the scheduler surface used by the bench.
type Scheduler interface {
	EnqueueWork(p []byte) bool
	Stats() realtime.Stats
}

// Button injects the next scripted bench event.
type Button interface {
	Press() (core.Event, bool)
}

// Config holds bench server configuration.
type Config struct {
	Listen string
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Button backs /button. Nil disables the endpoint.
	Button Button
}

// Server is the bench HTTP server.
type Server struct {
	config  Config
	machine Machine
	sched   Scheduler
	logger  *slog.Logger
	server  *http.Server
}

// New creates a bench server instance.
func New(config Config, machine Machine, sched Scheduler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  config,
		machine: machine,
		sched:   sched,
		logger:  logger.With("component", "bench"),
	}
}

// Start serves until ctx is cancelled (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("bench server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("bench server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/state", s.handleState)
	r.Get("/scheduler", s.handleScheduler)
	r.Get("/fsm.dot", s.handleDOT)
	r.Post("/events/{name}", s.handlePostEvent)
	r.Post("/recover", s.handleRecover)
	r.Post("/rx", s.handleRX)
	if s.config.Button != nil {
		r.Post("/button", s.handleButton)
	}
	if s.config.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// EventResponse reports an injected event.
type EventResponse struct {
	Posted string `json:"posted"`
	State  string `json:"state"`
}

// RXResponse reports an injected serial frame.
type RXResponse struct {
	Queued    bool `json:"queued"`
	Truncated bool `json:"truncated"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.sched.Stats().Halted {
		respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "scheduling lost"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "state": s.machine.State().String()})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.machine.Snapshot())
}

func (s *Server) handleScheduler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sched.Stats())
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = io.WriteString(w, s.machine.Visualize())
}

func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := core.ParseEvent(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.machine.Post(ev)
	respondJSON(w, http.StatusAccepted, EventResponse{Posted: core.FormatEvents(ev), State: s.machine.State().String()})
}

func (s *Server) handleButton(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.config.Button.Press()
	if !ok {
		s.writeError(w, http.StatusServiceUnavailable, "button press dropped")
		return
	}
	respondJSON(w, http.StatusAccepted, EventResponse{Posted: core.FormatEvents(ev), State: s.machine.State().String()})
}

func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	if err := s.machine.Recover(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrNotFaulted) {
			status = http.StatusConflict
		}
		s.writeError(w, status, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"state": s.machine.State().String()})
}

func (s *Server) handleRX(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRXBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	resp := RXResponse{
		Queued:    s.sched.EnqueueWork(body),
		Truncated: len(body) > primitives.RecordSize,
	}
	if !resp.Queued {
		s.logger.Warn("rx queue full, frame dropped", "len", len(body))
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	respondJSON(w, http.StatusAccepted, resp)
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
