package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/randomizedcoder/go-playback-analytics/internal/qos"
)

const shutdownTimeout = 5 * time.Second

// SnapshotStore serves the latest snapshot of live sessions.
type SnapshotStore interface {
	Snapshots() []qos.PlaybackMetrics
	Snapshot(sessionID string) (qos.PlaybackMetrics, bool)
}

// Server provides HTTP endpoints for Prometheus metrics, health checks and
// live session snapshots.
type Server struct {
	addr   string
	server *http.Server
	logger *slog.Logger
	store  SnapshotStore
	ready  atomic.Bool
}

// NewServer creates a new metrics server. gatherer nil uses the default
// Prometheus gatherer.
func NewServer(addr string, gatherer prometheus.Gatherer, store SnapshotStore, logger *slog.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		addr:   addr,
		logger: logger,
		store:  store,
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/health", healthHandler)
	r.Get("/healthz", healthHandler)
	r.Get("/ready", s.readyHandler)
	r.Get("/readyz", s.readyHandler)
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Get("/{sessionID}", s.getSession)
	})

	s.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// SetReady flips the /readyz answer. Run sets it once the listener is
// bound and clears it on shutdown.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Ready reports whether /readyz answers 200.
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// healthHandler handles health check requests.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	var out []qos.PlaybackMetrics
	if s.store != nil {
		out = s.store.Snapshots()
	}
	if out == nil {
		out = []qos.PlaybackMetrics{}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if s.store == nil {
		http.NotFound(w, r)
		return
	}
	m, ok := s.store.Snapshot(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("metrics_server_write_failed", "error", err)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
// A listen failure is returned immediately.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("metrics server listen %s: %w", s.addr, err)
	}
	s.logger.Info("metrics_server_starting", "addr", ln.Addr().String())
	s.SetReady(true)
	defer s.SetReady(false)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Debug("metrics_server_shutting_down")
	return s.server.Shutdown(ctx)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.addr
}
