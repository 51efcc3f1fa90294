// Package server exposes the watch-mode HTTP surface: health, recent run
// history, and prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lowsky/happo.io/internal/history"
	"github.com/lowsky/happo.io/internal/metrics"
)

// Server serves /healthz, /status, and /metrics for a watch session.
type Server struct {
	addr     string
	history  *history.Store
	registry *prometheus.Registry
	logger   *slog.Logger

	listener   net.Listener
	httpServer *http.Server
}

// New creates a server. history may be nil (status returns an empty list);
// registry may be nil (metrics endpoint omitted).
func New(addr string, store *history.Store, registry *prometheus.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{addr: addr, history: store, registry: registry, logger: logger}
}

// Start binds the listener and serves until Stop. Binding failures surface
// immediately; serve errors after that are logged, not returned.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	if s.registry != nil {
		mux.Handle("/metrics", metrics.HTTPHandler(s.registry))
	}

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.listener = ln
	s.logger.Info("Status server listening", "addr", ln.Addr().String())
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Status server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, useful when addr was ":0".
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully, bounded by ctx.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	entries := []history.Entry{}
	if s.history != nil {
		recent, err := s.history.Recent(r.Context(), 20)
		if err != nil {
			s.logger.Warn("Failed to read run history", "error", err)
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		if recent != nil {
			entries = recent
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"recentRuns": entries})
}
