package memory

import (
	"context"
	"sort"
	"sync"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/storage"
)

// PnLStore is an in-memory implementation of storage.PnLStore.
type PnLStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PnLRecord // keyed by (run_id, symbol, date)
}

// NewPnLStore creates a new in-memory P&L store.
func NewPnLStore() *PnLStore {
	return &PnLStore{data: make(map[string]*domain.PnLRecord)}
}

var _ storage.PnLStore = (*PnLStore)(nil)

// InsertBulk adds multiple P&L rows. Fails entire batch on duplicate.
func (s *PnLStore) InsertBulk(_ context.Context, runID string, pnl []*domain.PnLRecord) error {
	if len(pnl) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(pnl))
	for _, row := range pnl {
		if row == nil || row.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(runID, row.Symbol, row.Date)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, row := range pnl {
		rowCopy := *row
		s.data[barKey(runID, row.Symbol, row.Date)] = &rowCopy
	}
	return nil
}

// GetByRun retrieves all P&L rows for a run, ordered by date ASC.
func (s *PnLStore) GetByRun(_ context.Context, runID string) ([]*domain.PnLRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PnLRecord
	prefix := runID + "|"
	for key, row := range s.data {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			rowCopy := *row
			result = append(result, &rowCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}
