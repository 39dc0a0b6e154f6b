package postgres

import (
	"context"
	"fmt"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/storage"
)

// RollEventStore implements storage.RollEventStore using PostgreSQL.
type RollEventStore struct {
	pool *Pool
}

// NewRollEventStore creates a new RollEventStore.
func NewRollEventStore(pool *Pool) *RollEventStore {
	return &RollEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RollEventStore = (*RollEventStore)(nil)

// InsertBulk adds multiple roll events atomically. Fails entire batch on any duplicate.
func (s *RollEventStore) InsertBulk(ctx context.Context, runID string, events []*domain.RollEvent) error {
	if len(events) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO roll_events (
			run_id, event_date, root_symbol, from_contract, to_contract, reason
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, e := range events {
		_, err := tx.Exec(ctx, query,
			runID, e.Date, e.RootSymbol, e.FromContract, e.ToContract, e.Reason,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert roll event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRun retrieves all roll events for a run, ordered by (date, root_symbol) ASC.
func (s *RollEventStore) GetByRun(ctx context.Context, runID string) ([]*domain.RollEvent, error) {
	query := `
		SELECT event_date, root_symbol, from_contract, to_contract, reason
		FROM roll_events
		WHERE run_id = $1
		ORDER BY event_date ASC, root_symbol ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get roll events by run: %w", err)
	}
	defer rows.Close()

	var events []*domain.RollEvent
	for rows.Next() {
		var e domain.RollEvent
		if err := rows.Scan(&e.Date, &e.RootSymbol, &e.FromContract, &e.ToContract, &e.Reason); err != nil {
			return nil, fmt.Errorf("scan roll event row: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roll event rows: %w", err)
	}
	return events, nil
}
