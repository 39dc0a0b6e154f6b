package clickhouse

import (
	"context"
	"fmt"
	"time"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/storage"
)

// AttributionStore implements storage.AttributionStore using ClickHouse.
type AttributionStore struct {
	conn *Conn
}

// NewAttributionStore creates a new AttributionStore.
func NewAttributionStore(conn *Conn) *AttributionStore {
	return &AttributionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AttributionStore = (*AttributionStore)(nil)

// InsertBulk adds multiple attribution rows. Fails entire batch on
// duplicate (run_id, symbol, date).
func (s *AttributionStore) InsertBulk(ctx context.Context, runID string, records []*domain.AttributionRecord) error {
	if len(records) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	type key struct {
		symbol string
		date   time.Time
	}
	seen := make(map[key]struct{}, len(records))
	for _, rec := range records {
		if rec == nil || rec.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := key{rec.Symbol, rec.Date}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	exists, err := tableRunExists(ctx, s.conn, "attribution", runID)
	if err != nil {
		return fmt.Errorf("check run exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO attribution (
			run_id, attribution_date, symbol, pnl_total, carry_roll_pnl,
			spot_curve_move_pnl, costs_pnl, convexity_proxy_pnl, residual_pnl
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, rec := range records {
		err = batch.Append(
			runID, rec.Date, rec.Symbol, rec.PnLTotal, rec.CarryRollPnL,
			rec.SpotCurveMovePnL, rec.CostsPnL, rec.ConvexityProxyPnL, rec.ResidualPnL,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun retrieves all attribution rows for a run, ordered by date ASC.
func (s *AttributionStore) GetByRun(ctx context.Context, runID string) ([]*domain.AttributionRecord, error) {
	query := `
		SELECT attribution_date, symbol, pnl_total, carry_roll_pnl,
		       spot_curve_move_pnl, costs_pnl, convexity_proxy_pnl, residual_pnl
		FROM attribution
		WHERE run_id = ?
		ORDER BY attribution_date ASC, symbol ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query attribution by run: %w", err)
	}
	defer rows.Close()

	var result []*domain.AttributionRecord
	for rows.Next() {
		var rec domain.AttributionRecord
		err := rows.Scan(
			&rec.Date, &rec.Symbol, &rec.PnLTotal, &rec.CarryRollPnL,
			&rec.SpotCurveMovePnL, &rec.CostsPnL, &rec.ConvexityProxyPnL, &rec.ResidualPnL,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attribution row: %w", err)
		}
		rec.Date = domain.Midnight(rec.Date)
		result = append(result, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attribution rows: %w", err)
	}
	return result, nil
}
