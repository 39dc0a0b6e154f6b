package memory

import (
	"context"
	"sort"
	"sync"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/storage"
)

// SummaryStore is an in-memory implementation of storage.SummaryStore.
type SummaryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunSummary // keyed by run_id
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{data: make(map[string]*domain.RunSummary)}
}

var _ storage.SummaryStore = (*SummaryStore)(nil)

// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
func (s *SummaryStore) Insert(_ context.Context, summary *domain.RunSummary) error {
	if summary == nil || summary.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[summary.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	summaryCopy := *summary
	s.data[summary.RunID] = &summaryCopy
	return nil
}

// GetByRunID retrieves a summary. Returns ErrNotFound if not exists.
func (s *SummaryStore) GetByRunID(_ context.Context, runID string) (*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	summaryCopy := *summary
	return &summaryCopy, nil
}

// List retrieves all summaries, ordered by generated_at ASC.
func (s *SummaryStore) List(_ context.Context) ([]*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RunSummary, 0, len(s.data))
	for _, summary := range s.data {
		summaryCopy := *summary
		result = append(result, &summaryCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].GeneratedAt.Equal(result[j].GeneratedAt) {
			return result[i].GeneratedAt.Before(result[j].GeneratedAt)
		}
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}
