package memory

import (
	"context"
	"sort"
	"sync"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/storage"
)

// ComputeRunStore is an in-memory implementation of storage.ComputeRunStore.
type ComputeRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ComputeRun // keyed by run_id
}

// NewComputeRunStore creates a new in-memory compute-run store.
func NewComputeRunStore() *ComputeRunStore {
	return &ComputeRunStore{
		data: make(map[string]*domain.ComputeRun),
	}
}

var _ storage.ComputeRunStore = (*ComputeRunStore)(nil)

// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
func (s *ComputeRunStore) Insert(_ context.Context, run *domain.ComputeRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[run.RunID] = copyRun(run)
	return nil
}

// Complete finalizes a run record. Returns ErrNotFound if run_id does not exist.
func (s *ComputeRunStore) Complete(_ context.Context, run *domain.ComputeRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; !exists {
		return storage.ErrNotFound
	}
	s.data[run.RunID] = copyRun(run)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ComputeRunStore) GetByID(_ context.Context, runID string) (*domain.ComputeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyRun(run), nil
}

// GetRecent retrieves the most recent runs, newest first.
func (s *ComputeRunStore) GetRecent(_ context.Context, limit int) ([]*domain.ComputeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ComputeRun, 0, len(s.data))
	for _, run := range s.data {
		result = append(result, copyRun(run))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAtMs != result[j].StartedAtMs {
			return result[i].StartedAtMs > result[j].StartedAtMs
		}
		return result[i].RunID > result[j].RunID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyRun(run *domain.ComputeRun) *domain.ComputeRun {
	runCopy := *run
	if run.CompletedAtMs != nil {
		v := *run.CompletedAtMs
		runCopy.CompletedAtMs = &v
	}
	if run.Error != nil {
		v := *run.Error
		runCopy.Error = &v
	}
	runCopy.Features = append([]string(nil), run.Features...)
	return &runCopy
}
