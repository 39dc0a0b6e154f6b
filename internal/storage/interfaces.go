package storage

import (
	"context"

	"vol-rv-lab/internal/domain"
)

// All stores are append-only and scoped by run ID: a run's artifacts
// are written once and never revised. Re-running with the same inputs
// produces a new run ID.

// MarketDataStore provides access to standardized daily bars.
type MarketDataStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate
	// (run_id, symbol, date).
	InsertBulk(ctx context.Context, runID string, bars []*domain.Bar) error

	// GetByRun retrieves all bars for a run, ordered by (date, symbol) ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.Bar, error)

	// GetBySymbol retrieves one symbol's bars for a run, ordered by date ASC.
	GetBySymbol(ctx context.Context, runID, symbol string) ([]*domain.Bar, error)
}

// RollEventStore provides access to the roll audit log.
type RollEventStore interface {
	// InsertBulk adds multiple roll events. Fails entire batch on
	// duplicate (run_id, root_symbol, date).
	InsertBulk(ctx context.Context, runID string, events []*domain.RollEvent) error

	// GetByRun retrieves all roll events for a run, ordered by
	// (date, root_symbol) ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.RollEvent, error)
}

// TradeStore provides access to generated trade records.
type TradeStore interface {
	// InsertBulk adds multiple trades. Fails entire batch on duplicate
	// (run_id, date, trade_type).
	InsertBulk(ctx context.Context, runID string, trades []*domain.TradeRecord) error

	// GetByRun retrieves all trades for a run, ordered by
	// (date, trade_type) ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.TradeRecord, error)

	// GetByType retrieves a run's trades of one type, ordered by date ASC.
	GetByType(ctx context.Context, runID, tradeType string) ([]*domain.TradeRecord, error)
}

// PositionStore provides access to the daily position table.
type PositionStore interface {
	// InsertBulk adds multiple position rows. Fails entire batch on
	// duplicate (run_id, symbol, date).
	InsertBulk(ctx context.Context, runID string, positions []*domain.PositionRecord) error

	// GetByRun retrieves all position rows for a run, ordered by date ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.PositionRecord, error)
}

// PnLStore provides access to the daily P&L table.
type PnLStore interface {
	// InsertBulk adds multiple P&L rows. Fails entire batch on
	// duplicate (run_id, symbol, date).
	InsertBulk(ctx context.Context, runID string, pnl []*domain.PnLRecord) error

	// GetByRun retrieves all P&L rows for a run, ordered by date ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.PnLRecord, error)
}

// AttributionStore provides access to the daily attribution table.
type AttributionStore interface {
	// InsertBulk adds multiple attribution rows. Fails entire batch on
	// duplicate (run_id, symbol, date).
	InsertBulk(ctx context.Context, runID string, records []*domain.AttributionRecord) error

	// GetByRun retrieves all attribution rows for a run, ordered by date ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.AttributionRecord, error)
}

// SummaryStore provides access to run summaries.
type SummaryStore interface {
	// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, summary *domain.RunSummary) error

	// GetByRunID retrieves a summary. Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) (*domain.RunSummary, error)

	// List retrieves all summaries, ordered by generated_at ASC.
	List(ctx context.Context) ([]*domain.RunSummary, error)
}
