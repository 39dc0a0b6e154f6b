// Package memory holds in-memory store implementations. They back
// unit tests and DSN-less pipeline runs with the same append-only
// semantics as the database stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/storage"
)

// MarketDataStore is an in-memory implementation of storage.MarketDataStore.
type MarketDataStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Bar // keyed by (run_id, symbol, date)
}

// NewMarketDataStore creates a new in-memory market data store.
func NewMarketDataStore() *MarketDataStore {
	return &MarketDataStore{data: make(map[string]*domain.Bar)}
}

var _ storage.MarketDataStore = (*MarketDataStore)(nil)

func barKey(runID, symbol string, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", runID, symbol, domain.FormatDate(date))
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate.
func (s *MarketDataStore) InsertBulk(_ context.Context, runID string, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(bars))
	for _, bar := range bars {
		if bar == nil || bar.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(runID, bar.Symbol, bar.Date)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, bar := range bars {
		barCopy := *bar
		s.data[barKey(runID, bar.Symbol, bar.Date)] = &barCopy
	}
	return nil
}

// GetByRun retrieves all bars for a run, ordered by (date, symbol) ASC.
func (s *MarketDataStore) GetByRun(_ context.Context, runID string) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	prefix := runID + "|"
	for key, bar := range s.data {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			barCopy := *bar
			result = append(result, &barCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Symbol < result[j].Symbol
	})
	return result, nil
}

// GetBySymbol retrieves one symbol's bars for a run, ordered by date ASC.
func (s *MarketDataStore) GetBySymbol(ctx context.Context, runID, symbol string) ([]*domain.Bar, error) {
	all, err := s.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	var result []*domain.Bar
	for _, bar := range all {
		if bar.Symbol == symbol {
			result = append(result, bar)
		}
	}
	return result, nil
}
