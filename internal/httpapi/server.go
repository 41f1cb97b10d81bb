// Package httpapi serves health, metrics and pipeline status over HTTP.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"solana-token-gate/internal/domain"
	"solana-token-gate/internal/storage"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout = 10 * time.Second
)

// StatusSource exposes the live pipeline state.
type StatusSource interface {
	Iterations() int64
	LastRun() *domain.RunStats
}

// Server is the status HTTP server.
type Server struct {
	log *zap.Logger

	router *gin.Engine
	addr   string
	server *http.Server

	status     StatusSource
	executions storage.ExecutionStore
	runStats   storage.RunStatsStore
}

// NewServer creates the server and registers routes. executions and
// runStats may be nil.
func NewServer(addr string, status StatusSource, executions storage.ExecutionStore, runStats storage.RunStatsStore, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		log:        log,
		router:     router,
		addr:       addr,
		status:     status,
		executions: executions,
		runStats:   runStats,
	}
	s.routes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.log.Info("starting HTTP server", zap.String("address", s.addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	s.log.Info("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	return nil
}
