package httpapi

import (
	"github.com/gin-gonic/gin"

	"solana-token-gate/internal/observability"
)

// routes sets up the routes for the HTTP server.
func (s *Server) routes() {
	s.router.GET("/health", s.health)
	s.router.GET("/metrics", gin.WrapH(observability.Handler()))

	v1 := s.router.Group("/api/v1")
	v1.GET("/status", s.statusHandler)
	v1.GET("/runs", s.runs)
	v1.GET("/executions", s.listExecutions)
	v1.GET("/executions/:id", s.getExecution)
}
