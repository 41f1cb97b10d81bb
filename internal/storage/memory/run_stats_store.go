package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-gate/internal/domain"
	"solana-token-gate/internal/storage"
)

// RunStatsStore is an in-memory implementation of storage.RunStatsStore.
type RunStatsStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunStats // keyed by run_id
}

// NewRunStatsStore creates a new in-memory run stats store.
func NewRunStatsStore() *RunStatsStore {
	return &RunStatsStore{
		data: make(map[string]*domain.RunStats),
	}
}

// Insert adds run stats. Returns ErrDuplicateKey if run_id exists.
func (s *RunStatsStore) Insert(_ context.Context, r *domain.RunStats) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.RunID] = &copy
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

// ListRecent returns up to limit runs ordered by started_at DESC.
func (s *RunStatsStore) ListRecent(_ context.Context, limit int) ([]*domain.RunStats, error) {
	limit = storage.NormalizeLimit(limit)

	s.mu.RLock()
	result := make([]*domain.RunStats, 0, len(s.data))
	for _, r := range s.data {
		copy := *r
		result = append(result, &copy)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt != result[j].StartedAt {
			return result[i].StartedAt > result[j].StartedAt
		}
		return result[i].RunID > result[j].RunID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.RunStatsStore = (*RunStatsStore)(nil)
