package memory

import (
	"context"
	"sort"
	"sync"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PositionRecord // keyed by (run_id, symbol, date)
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{data: make(map[string]*domain.PositionRecord)}
}

var _ storage.PositionStore = (*PositionStore)(nil)

// InsertBulk adds multiple position rows. Fails entire batch on duplicate.
func (s *PositionStore) InsertBulk(_ context.Context, runID string, positions []*domain.PositionRecord) error {
	if len(positions) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(positions))
	for _, pos := range positions {
		if pos == nil || pos.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(runID, pos.Symbol, pos.Date)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, pos := range positions {
		posCopy := *pos
		s.data[barKey(runID, pos.Symbol, pos.Date)] = &posCopy
	}
	return nil
}

// GetByRun retrieves all position rows for a run, ordered by date ASC.
func (s *PositionStore) GetByRun(_ context.Context, runID string) ([]*domain.PositionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PositionRecord
	prefix := runID + "|"
	for key, pos := range s.data {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			posCopy := *pos
			result = append(result, &posCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}
