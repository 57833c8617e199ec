// Package api exposes the agent's local HTTP surface: analysis ingest,
// plan creation and retrieval, job tracking, EDL export and media playback.
// The server binds loopback only; clients authenticate with the bearer
// token stored in the agent's config table.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/analyzers"
	"github.com/tempocut/tempocut-agent/internal/playback"
	"github.com/tempocut/tempocut-agent/internal/plans"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port       int
	Version    string
	Analyses   analysis.AnalysisService
	Plans      plans.PlanService
	Repository plans.Repository
	Runner     *plans.Runner
	Doctor     *analyzers.CachedDoctor
	Playback   playback.PlaybackService
	Logger     *slog.Logger
	StartTime  time.Time
	DeviceID   string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
