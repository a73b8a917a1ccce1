// Package server exposes the job API: submission with a streamed progress
// response, job inspection, artifact download, and health.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Nexitus/KotoSub/internal/config"
	"github.com/Nexitus/KotoSub/internal/events"
	"github.com/Nexitus/KotoSub/internal/logging"
	"github.com/Nexitus/KotoSub/internal/queue"
	"github.com/Nexitus/KotoSub/internal/stage"
)

// HealthReporter supplies per-stage readiness for the health endpoint.
type HealthReporter interface {
	Health(ctx context.Context) []stage.Health
}

// Server is the HTTP front of the daemon.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	hub    *events.Hub
	health HealthReporter

	listener net.Listener
	server   *http.Server
}

// New assembles the server around the shared store and event hub.
func New(cfg *config.Config, logger *slog.Logger, store *queue.Store, hub *events.Hub, health HealthReporter) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logging.WithComponent(logger, "server"),
		store:  store,
		hub:    hub,
		health: health,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/translate", s.handleTranslate)
	mux.HandleFunc("/api/jobs", s.handleJobs)
	mux.HandleFunc("/api/jobs/", s.handleJob)
	mux.HandleFunc("/api/download", s.handleDownload)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No write timeout: submission and event endpoints stream NDJSON
		// for the lifetime of a job.
	}
	return s
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins listening on the configured bind address.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.cfg.Paths.APIBind)
	if bind == "" {
		return fmt.Errorf("api bind address not configured")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, allowing in-flight responses to finish.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}
