package clickhouse

import (
	"context"
	"fmt"
	"time"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/storage"
)

// PositionStore implements storage.PositionStore using ClickHouse.
type PositionStore struct {
	conn *Conn
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(conn *Conn) *PositionStore {
	return &PositionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// InsertBulk adds multiple position rows. Fails entire batch on
// duplicate (run_id, symbol, date).
func (s *PositionStore) InsertBulk(ctx context.Context, runID string, positions []*domain.PositionRecord) error {
	if len(positions) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	type key struct {
		symbol string
		date   time.Time
	}
	seen := make(map[key]struct{}, len(positions))
	for _, pos := range positions {
		if pos == nil || pos.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := key{pos.Symbol, pos.Date}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	exists, err := tableRunExists(ctx, s.conn, "positions", runID)
	if err != nil {
		return fmt.Errorf("check run exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO positions (
			run_id, position_date, symbol, signal_value, signal_date,
			target_position_raw, target_position, position, position_prev,
			trade_qty, price, daily_return, is_roll_date
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, pos := range positions {
		err = batch.Append(
			runID, pos.Date, pos.Symbol, pos.SignalValue, pos.SignalDate,
			pos.TargetPositionRaw, pos.TargetPosition, pos.Position, pos.PositionPrev,
			pos.TradeQty, pos.Price, pos.DailyReturn, boolToUInt8(pos.IsRollDate),
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

// GetByRun retrieves all position rows for a run, ordered by date ASC.
func (s *PositionStore) GetByRun(ctx context.Context, runID string) ([]*domain.PositionRecord, error) {
	query := `
		SELECT position_date, symbol, signal_value, signal_date,
		       target_position_raw, target_position, position, position_prev,
		       trade_qty, price, daily_return, is_roll_date
		FROM positions
		WHERE run_id = ?
		ORDER BY position_date ASC, symbol ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query positions by run: %w", err)
	}
	defer rows.Close()

	var positions []*domain.PositionRecord
	for rows.Next() {
		var pos domain.PositionRecord
		var isRoll uint8

		err := rows.Scan(
			&pos.Date, &pos.Symbol, &pos.SignalValue, &pos.SignalDate,
			&pos.TargetPositionRaw, &pos.TargetPosition, &pos.Position, &pos.PositionPrev,
			&pos.TradeQty, &pos.Price, &pos.DailyReturn, &isRoll,
		)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}

		pos.Date = domain.Midnight(pos.Date)
		if pos.SignalDate != nil {
			sd := domain.Midnight(*pos.SignalDate)
			pos.SignalDate = &sd
		}
		pos.IsRollDate = isRoll != 0
		positions = append(positions, &pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}
	return positions, nil
}

// tableRunExists checks whether any rows exist for the run in a table.
func tableRunExists(ctx context.Context, conn *Conn, table, runID string) (bool, error) {
	var count uint64
	query := fmt.Sprintf(`SELECT count(*) FROM %s WHERE run_id = ?`, table)
	if err := conn.QueryRow(ctx, query, runID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
