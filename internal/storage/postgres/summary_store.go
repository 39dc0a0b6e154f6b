package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/storage"
)

// SummaryStore implements storage.SummaryStore using PostgreSQL. The
// config snapshot and metrics are stored as JSONB so schema evolution
// of either does not require a migration.
type SummaryStore struct {
	pool *Pool
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(pool *Pool) *SummaryStore {
	return &SummaryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
func (s *SummaryStore) Insert(ctx context.Context, summary *domain.RunSummary) error {
	if summary == nil || summary.RunID == "" {
		return storage.ErrInvalidInput
	}

	snapshot, err := json.Marshal(summary.ConfigSnapshot)
	if err != nil {
		return fmt.Errorf("marshal config snapshot: %w", err)
	}
	metrics, err := json.Marshal(summary.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	query := `
		INSERT INTO run_summaries (run_id, generated_at, config_snapshot, metrics)
		VALUES ($1, $2, $3, $4)
	`
	_, err = s.pool.Exec(ctx, query, summary.RunID, summary.GeneratedAt, snapshot, metrics)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run summary: %w", err)
	}
	return nil
}

// GetByRunID retrieves a summary. Returns ErrNotFound if not exists.
func (s *SummaryStore) GetByRunID(ctx context.Context, runID string) (*domain.RunSummary, error) {
	query := `
		SELECT run_id, generated_at, config_snapshot, metrics
		FROM run_summaries
		WHERE run_id = $1
	`

	var summary domain.RunSummary
	var snapshot, metrics []byte
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&summary.RunID, &summary.GeneratedAt, &snapshot, &metrics,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run summary: %w", err)
	}

	if err := unmarshalSummary(&summary, snapshot, metrics); err != nil {
		return nil, err
	}
	return &summary, nil
}

// List retrieves all summaries, ordered by generated_at ASC.
func (s *SummaryStore) List(ctx context.Context) ([]*domain.RunSummary, error) {
	query := `
		SELECT run_id, generated_at, config_snapshot, metrics
		FROM run_summaries
		ORDER BY generated_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list run summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*domain.RunSummary
	for rows.Next() {
		var summary domain.RunSummary
		var snapshot, metrics []byte
		if err := rows.Scan(&summary.RunID, &summary.GeneratedAt, &snapshot, &metrics); err != nil {
			return nil, fmt.Errorf("scan run summary row: %w", err)
		}
		if err := unmarshalSummary(&summary, snapshot, metrics); err != nil {
			return nil, err
		}
		summaries = append(summaries, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run summary rows: %w", err)
	}
	return summaries, nil
}

func unmarshalSummary(summary *domain.RunSummary, snapshot, metrics []byte) error {
	if len(snapshot) > 0 {
		var cfg any
		if err := json.Unmarshal(snapshot, &cfg); err != nil {
			return fmt.Errorf("unmarshal config snapshot: %w", err)
		}
		summary.ConfigSnapshot = cfg
	}
	if err := json.Unmarshal(metrics, &summary.Metrics); err != nil {
		return fmt.Errorf("unmarshal metrics: %w", err)
	}
	return nil
}
