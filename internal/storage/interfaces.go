package storage

import (
	"context"

	"solana-token-gate/internal/domain"
)

// ExecutionStore is the append-only journal of guarded execution attempts.
type ExecutionStore interface {
	// Insert adds a record. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, r *domain.ExecutionRecord) error

	// GetByID retrieves a record by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.ExecutionRecord, error)

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.ExecutionRecord, error)
}

// RunStatsStore holds per-iteration pipeline statistics.
type RunStatsStore interface {
	// Insert adds run stats. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, s *domain.RunStats) error

	// Latest returns the most recently started run. Returns ErrNotFound if empty.
	Latest(ctx context.Context) (*domain.RunStats, error)

	// ListRecent returns up to limit runs, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.RunStats, error)
}
