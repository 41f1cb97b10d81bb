package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"solana-token-gate/internal/domain"
	"solana-token-gate/internal/storage"
)

type statusResponse struct {
	Iterations int64            `json:"iterations"`
	LastRun    *domain.RunStats `json:"last_run"`
}

type executionResponse struct {
	ID          string  `json:"id"`
	Mint        string  `json:"mint"`
	Side        string  `json:"side"`
	Amount      float64 `json:"amount"`
	Status      string  `json:"status"`
	FeeLamports *uint64 `json:"fee_lamports,omitempty"`
	Signature   *string `json:"signature,omitempty"`
	Error       *string `json:"error,omitempty"`
	CreatedAt   int64   `json:"created_at"`
}

func toExecutionResponse(r *domain.ExecutionRecord) executionResponse {
	return executionResponse{
		ID:          r.ID,
		Mint:        r.Mint,
		Side:        string(r.Side),
		Amount:      r.Amount,
		Status:      string(r.Status),
		FeeLamports: r.FeeLamports,
		Signature:   r.Signature,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
	}
}

func (s *Server) health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// statusHandler reports the iteration count and the latest run. The live
// pipeline state wins; the run-stats store covers a freshly started process.
func (s *Server) statusHandler(c *gin.Context) {
	resp := statusResponse{}
	if s.status != nil {
		resp.Iterations = s.status.Iterations()
		resp.LastRun = s.status.LastRun()
	}

	if resp.LastRun == nil && s.runStats != nil {
		last, err := s.runStats.Latest(c.Request.Context())
		switch {
		case err == nil:
			resp.LastRun = last
		case !errors.Is(err, storage.ErrNotFound):
			s.log.Error("failed to load latest run", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load latest run"})
			return
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) runs(c *gin.Context) {
	if s.runStats == nil {
		c.JSON(http.StatusOK, []*domain.RunStats{})
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	runs, err := s.runStats.ListRecent(c.Request.Context(), limit)
	if err != nil {
		s.log.Error("failed to list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []*domain.RunStats{}
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) listExecutions(c *gin.Context) {
	if s.executions == nil {
		c.JSON(http.StatusOK, []executionResponse{})
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	records, err := s.executions.ListRecent(c.Request.Context(), limit)
	if err != nil {
		s.log.Error("failed to list executions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list executions"})
		return
	}

	out := make([]executionResponse, 0, len(records))
	for _, r := range records {
		out = append(out, toExecutionResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getExecution(c *gin.Context) {
	if s.executions == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "execution not found"})
		return
	}

	rec, err := s.executions.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "execution not found"})
		return
	}
	if err != nil {
		s.log.Error("failed to get execution", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get execution"})
		return
	}
	c.JSON(http.StatusOK, toExecutionResponse(rec))
}

// parseLimit reads ?limit=N. A missing value uses the store default.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return storage.DefaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return storage.NormalizeLimit(limit), true
}
