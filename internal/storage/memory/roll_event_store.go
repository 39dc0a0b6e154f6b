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

// RollEventStore is an in-memory implementation of storage.RollEventStore.
type RollEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RollEvent // keyed by (run_id, root_symbol, date)
}

// NewRollEventStore creates a new in-memory roll event store.
func NewRollEventStore() *RollEventStore {
	return &RollEventStore{data: make(map[string]*domain.RollEvent)}
}

var _ storage.RollEventStore = (*RollEventStore)(nil)

func rollEventKey(runID, rootSymbol string, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", runID, rootSymbol, domain.FormatDate(date))
}

// InsertBulk adds multiple roll events. Fails entire batch on duplicate.
func (s *RollEventStore) InsertBulk(_ context.Context, runID string, events []*domain.RollEvent) error {
	if len(events) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(events))
	for _, event := range events {
		if event == nil || event.RootSymbol == "" {
			return storage.ErrInvalidInput
		}
		key := rollEventKey(runID, event.RootSymbol, event.Date)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, event := range events {
		eventCopy := *event
		s.data[rollEventKey(runID, event.RootSymbol, event.Date)] = &eventCopy
	}
	return nil
}

// GetByRun retrieves all roll events for a run, ordered by (date, root_symbol) ASC.
func (s *RollEventStore) GetByRun(_ context.Context, runID string) ([]*domain.RollEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RollEvent
	prefix := runID + "|"
	for key, event := range s.data {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			eventCopy := *event
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].RootSymbol < result[j].RootSymbol
	})
	return result, nil
}
