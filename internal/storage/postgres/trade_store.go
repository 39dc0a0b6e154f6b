package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	run_id, trade_date, signal_date, symbol, trade_type,
	target_position, position_before, position_after, trade_qty,
	price, notional, regular_cost, roll_cost, total_cost
`

const insertTradeQuery = `
	INSERT INTO trades (` + tradeColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, runID string, trades []*domain.TradeRecord) error {
	if len(trades) == 0 {
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

	for _, t := range trades {
		_, err := tx.Exec(ctx, insertTradeQuery,
			runID, t.Date, t.SignalDate, t.Symbol, t.TradeType,
			t.TargetPosition, t.PositionBefore, t.PositionAfter, t.TradeQty,
			t.Price, t.Notional, t.RegularCost, t.RollCost, t.TotalCost,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRun retrieves all trades for a run, ordered by (date, trade_type) ASC.
func (s *TradeStore) GetByRun(ctx context.Context, runID string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE run_id = $1
		ORDER BY trade_date ASC, trade_type ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades by run: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByType retrieves a run's trades of one type, ordered by date ASC.
func (s *TradeStore) GetByType(ctx context.Context, runID, tradeType string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE run_id = $1 AND trade_type = $2
		ORDER BY trade_date ASC
	`

	rows, err := s.pool.Query(ctx, query, runID, tradeType)
	if err != nil {
		return nil, fmt.Errorf("get trades by type: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades scans multiple rows into trade records.
func scanTrades(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	var trades []*domain.TradeRecord

	for rows.Next() {
		var t domain.TradeRecord
		var runID string

		err := rows.Scan(
			&runID, &t.Date, &t.SignalDate, &t.Symbol, &t.TradeType,
			&t.TargetPosition, &t.PositionBefore, &t.PositionAfter, &t.TradeQty,
			&t.Price, &t.Notional, &t.RegularCost, &t.RollCost, &t.TotalCost,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
