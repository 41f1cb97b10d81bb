package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-token-gate/internal/domain"
	"solana-token-gate/internal/storage"
)

// RunStatsStore implements storage.RunStatsStore using ClickHouse.
type RunStatsStore struct {
	conn *Conn
}

// NewRunStatsStore creates a new RunStatsStore.
func NewRunStatsStore(conn *Conn) *RunStatsStore {
	return &RunStatsStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RunStatsStore = (*RunStatsStore)(nil)

const runStatsColumns = `run_id, started_at, duration_ms, fetched, passed, scam, safe, executions, source_error`

// Insert adds run stats. Returns ErrDuplicateKey if run_id exists.
// MergeTree does not enforce uniqueness, so the key is checked first.
func (s *RunStatsStore) Insert(ctx context.Context, r *domain.RunStats) (err error) {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	defer func(start time.Time) { observe("insert_scan_run", start, err) }(time.Now())

	exists, err := s.exists(ctx, r.RunID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `INSERT INTO scan_runs (` + runStatsColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err = s.conn.Exec(ctx, query,
		r.RunID, r.StartedAt, r.DurationMs,
		int64(r.Fetched), int64(r.Passed), int64(r.Scam), int64(r.Safe), int64(r.Executions),
		r.SourceError,
	)
	if err != nil {
		return fmt.Errorf("insert scan run: %w", err)
	}
	return nil
}

// Latest returns the most recently started run. Returns ErrNotFound if empty.
func (s *RunStatsStore) Latest(ctx context.Context) (*domain.RunStats, error) {
	runs, err := s.ListRecent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, storage.ErrNotFound
	}
	return runs[0], nil
}

// ListRecent returns up to limit runs, newest first.
func (s *RunStatsStore) ListRecent(ctx context.Context, limit int) (out []*domain.RunStats, err error) {
	defer func(start time.Time) { observe("list_scan_runs", start, err) }(time.Now())

	query := `
		SELECT ` + runStatsColumns + `
		FROM scan_runs
		ORDER BY started_at DESC, run_id DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, uint64(storage.NormalizeLimit(limit)))
	if err != nil {
		return nil, fmt.Errorf("query scan runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r                                         domain.RunStats
			fetched, passed, scam, safe, executions int64
		)
		if err := rows.Scan(
			&r.RunID, &r.StartedAt, &r.DurationMs,
			&fetched, &passed, &scam, &safe, &executions,
			&r.SourceError,
		); err != nil {
			return nil, fmt.Errorf("scan scan run row: %w", err)
		}
		r.Fetched = int(fetched)
		r.Passed = int(passed)
		r.Scam = int(scam)
		r.Safe = int(safe)
		r.Executions = int(executions)
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan run rows: %w", err)
	}
	return out, nil
}

func (s *RunStatsStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, `SELECT count() FROM scan_runs WHERE run_id = ?`, runID)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
