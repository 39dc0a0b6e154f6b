package clickhouse

import (
	"context"
	"fmt"
	"time"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/storage"
)

// PnLStore implements storage.PnLStore using ClickHouse.
type PnLStore struct {
	conn *Conn
}

// NewPnLStore creates a new PnLStore.
func NewPnLStore(conn *Conn) *PnLStore {
	return &PnLStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PnLStore = (*PnLStore)(nil)

// InsertBulk adds multiple P&L rows. Fails entire batch on duplicate
// (run_id, symbol, date).
func (s *PnLStore) InsertBulk(ctx context.Context, runID string, pnl []*domain.PnLRecord) error {
	if len(pnl) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	type key struct {
		symbol string
		date   time.Time
	}
	seen := make(map[key]struct{}, len(pnl))
	for _, row := range pnl {
		if row == nil || row.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := key{row.Symbol, row.Date}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	exists, err := tableRunExists(ctx, s.conn, "pnl", runID)
	if err != nil {
		return fmt.Errorf("check run exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pnl (
			run_id, pnl_date, symbol, position_prev, daily_return,
			gross_pnl, costs_pnl, net_pnl, equity
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, row := range pnl {
		err = batch.Append(
			runID, row.Date, row.Symbol, row.PositionPrev, row.DailyReturn,
			row.GrossPnL, row.CostsPnL, row.NetPnL, row.Equity,
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

// GetByRun retrieves all P&L rows for a run, ordered by date ASC.
func (s *PnLStore) GetByRun(ctx context.Context, runID string) ([]*domain.PnLRecord, error) {
	query := `
		SELECT pnl_date, symbol, position_prev, daily_return,
		       gross_pnl, costs_pnl, net_pnl, equity
		FROM pnl
		WHERE run_id = ?
		ORDER BY pnl_date ASC, symbol ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query pnl by run: %w", err)
	}
	defer rows.Close()

	var result []*domain.PnLRecord
	for rows.Next() {
		var row domain.PnLRecord
		err := rows.Scan(
			&row.Date, &row.Symbol, &row.PositionPrev, &row.DailyReturn,
			&row.GrossPnL, &row.CostsPnL, &row.NetPnL, &row.Equity,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pnl row: %w", err)
		}
		row.Date = domain.Midnight(row.Date)
		result = append(result, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pnl rows: %w", err)
	}
	return result, nil
}
