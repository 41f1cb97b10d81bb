package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-gate/internal/domain"
	"solana-token-gate/internal/storage"
)

// ExecutionStore is an in-memory implementation of storage.ExecutionStore.
type ExecutionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ExecutionRecord // keyed by id
}

// NewExecutionStore creates a new in-memory execution journal.
func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{
		data: make(map[string]*domain.ExecutionRecord),
	}
}

// Insert adds a record. Returns ErrDuplicateKey if id exists.
func (s *ExecutionStore) Insert(_ context.Context, r *domain.ExecutionRecord) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.ID] = cloneExecution(r)
	return nil
}

// GetByID retrieves a record by id. Returns ErrNotFound if not exists.
func (s *ExecutionStore) GetByID(_ context.Context, id string) (*domain.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneExecution(r), nil
}

// ListRecent returns up to limit records ordered by created_at DESC, id DESC.
func (s *ExecutionStore) ListRecent(_ context.Context, limit int) ([]*domain.ExecutionRecord, error) {
	limit = storage.NormalizeLimit(limit)

	s.mu.RLock()
	result := make([]*domain.ExecutionRecord, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, cloneExecution(r))
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ID > result[j].ID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// cloneExecution copies r including its pointer fields.
func cloneExecution(r *domain.ExecutionRecord) *domain.ExecutionRecord {
	c := *r
	if r.FeeLamports != nil {
		v := *r.FeeLamports
		c.FeeLamports = &v
	}
	if r.Signature != nil {
		v := *r.Signature
		c.Signature = &v
	}
	if r.Error != nil {
		v := *r.Error
		c.Error = &v
	}
	return &c
}

var _ storage.ExecutionStore = (*ExecutionStore)(nil)
