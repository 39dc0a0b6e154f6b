package memory

import (
	"context"
	"sort"
	"sync"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/storage"
)

// AttributionStore is an in-memory implementation of storage.AttributionStore.
type AttributionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AttributionRecord // keyed by (run_id, symbol, date)
}

// NewAttributionStore creates a new in-memory attribution store.
func NewAttributionStore() *AttributionStore {
	return &AttributionStore{data: make(map[string]*domain.AttributionRecord)}
}

var _ storage.AttributionStore = (*AttributionStore)(nil)

// InsertBulk adds multiple attribution rows. Fails entire batch on duplicate.
func (s *AttributionStore) InsertBulk(_ context.Context, runID string, records []*domain.AttributionRecord) error {
	if len(records) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec == nil || rec.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(runID, rec.Symbol, rec.Date)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, rec := range records {
		recCopy := *rec
		s.data[barKey(runID, rec.Symbol, rec.Date)] = &recCopy
	}
	return nil
}

// GetByRun retrieves all attribution rows for a run, ordered by date ASC.
func (s *AttributionStore) GetByRun(_ context.Context, runID string) ([]*domain.AttributionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AttributionRecord
	prefix := runID + "|"
	for key, rec := range s.data {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			recCopy := *rec
			result = append(result, &recCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}
