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

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeRecord // keyed by (run_id, date, trade_type)
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{data: make(map[string]*domain.TradeRecord)}
}

var _ storage.TradeStore = (*TradeStore)(nil)

func tradeKey(runID string, date time.Time, tradeType string) string {
	return fmt.Sprintf("%s|%s|%s", runID, domain.FormatDate(date), tradeType)
}

// InsertBulk adds multiple trades. Fails entire batch on duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, runID string, trades []*domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(trades))
	for _, trade := range trades {
		if trade == nil || trade.TradeType == "" {
			return storage.ErrInvalidInput
		}
		key := tradeKey(runID, trade.Date, trade.TradeType)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, trade := range trades {
		tradeCopy := *trade
		s.data[tradeKey(runID, trade.Date, trade.TradeType)] = &tradeCopy
	}
	return nil
}

// GetByRun retrieves all trades for a run, ordered by (date, trade_type) ASC.
func (s *TradeStore) GetByRun(_ context.Context, runID string) ([]*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeRecord
	prefix := runID + "|"
	for key, trade := range s.data {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			tradeCopy := *trade
			result = append(result, &tradeCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].TradeType < result[j].TradeType
	})
	return result, nil
}

// GetByType retrieves a run's trades of one type, ordered by date ASC.
func (s *TradeStore) GetByType(ctx context.Context, runID, tradeType string) ([]*domain.TradeRecord, error) {
	all, err := s.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	var result []*domain.TradeRecord
	for _, trade := range all {
		if trade.TradeType == tradeType {
			result = append(result, trade)
		}
	}
	return result, nil
}
