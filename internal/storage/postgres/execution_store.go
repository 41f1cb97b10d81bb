package postgres

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-gate/internal/domain"
	"solana-token-gate/internal/storage"
)

// ExecutionStore implements storage.ExecutionStore using PostgreSQL.
type ExecutionStore struct {
	pool *Pool
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(pool *Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExecutionStore = (*ExecutionStore)(nil)

const executionColumns = `id, mint, side, amount, status, fee_lamports, signature, error, created_at`

// Insert adds a record. Returns ErrDuplicateKey if id exists.
func (s *ExecutionStore) Insert(ctx context.Context, r *domain.ExecutionRecord) (err error) {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}
	fee, err := feeToDB(r.FeeLamports)
	if err != nil {
		return err
	}

	defer func(start time.Time) { observe("insert_execution", start, err) }(time.Now())

	query := `
		INSERT INTO executions (` + executionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.Mint, string(r.Side), r.Amount, string(r.Status),
		fee, r.Signature, r.Error, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByID retrieves a record by id. Returns ErrNotFound if not exists.
func (s *ExecutionStore) GetByID(ctx context.Context, id string) (r *domain.ExecutionRecord, err error) {
	defer func(start time.Time) { observe("get_execution", start, err) }(time.Now())

	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1`

	r, err = scanExecution(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get execution by id: %w", err)
	}
	return r, nil
}

// ListRecent returns up to limit records, newest first.
func (s *ExecutionStore) ListRecent(ctx context.Context, limit int) (out []*domain.ExecutionRecord, err error) {
	defer func(start time.Time) { observe("list_executions", start, err) }(time.Now())

	query := `
		SELECT ` + executionColumns + `
		FROM executions
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, storage.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution rows: %w", err)
	}
	return out, nil
}

// scanExecution scans a single row into an ExecutionRecord.
func scanExecution(row pgx.Row) (*domain.ExecutionRecord, error) {
	var (
		r      domain.ExecutionRecord
		side   string
		status string
		fee    *int64
	)

	err := row.Scan(
		&r.ID, &r.Mint, &side, &r.Amount, &status,
		&fee, &r.Signature, &r.Error, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Side = domain.TradeSide(side)
	r.Status = domain.ExecutionStatus(status)
	if fee != nil {
		v := uint64(*fee)
		r.FeeLamports = &v
	}
	return &r, nil
}

// feeToDB maps a lamport fee onto BIGINT.
func feeToDB(fee *uint64) (*int64, error) {
	if fee == nil {
		return nil, nil
	}
	if *fee > math.MaxInt64 {
		return nil, fmt.Errorf("%w: fee %d overflows BIGINT", storage.ErrInvalidInput, *fee)
	}
	v := int64(*fee)
	return &v, nil
}
