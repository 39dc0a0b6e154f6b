package clickhouse

import (
	"context"
	"fmt"
	"time"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/storage"
)

// MarketDataStore implements storage.MarketDataStore using ClickHouse.
type MarketDataStore struct {
	conn *Conn
}

// NewMarketDataStore creates a new MarketDataStore.
func NewMarketDataStore(conn *Conn) *MarketDataStore {
	return &MarketDataStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MarketDataStore = (*MarketDataStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate
// (run_id, symbol, date). MergeTree does not enforce uniqueness, so
// duplicates are checked explicitly before the batch is sent.
func (s *MarketDataStore) InsertBulk(ctx context.Context, runID string, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	type key struct {
		symbol string
		date   time.Time
	}
	seen := make(map[key]struct{}, len(bars))
	for _, bar := range bars {
		if bar == nil || bar.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := key{bar.Symbol, bar.Date}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	exists, err := s.runExists(ctx, runID)
	if err != nil {
		return fmt.Errorf("check run exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO market_bars (
			run_id, bar_date, symbol, asset_type,
			open, high, low, close, volume,
			source, asof_timestamp, is_data_missing, is_market_closed
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, bar := range bars {
		err = batch.Append(
			runID, bar.Date, bar.Symbol, bar.AssetType,
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
			bar.Source, bar.AsOf, boolToUInt8(bar.IsDataMissing), boolToUInt8(bar.IsMarketClosed),
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

// GetByRun retrieves all bars for a run, ordered by (date, symbol) ASC.
func (s *MarketDataStore) GetByRun(ctx context.Context, runID string) ([]*domain.Bar, error) {
	query := `
		SELECT bar_date, symbol, asset_type,
		       open, high, low, close, volume,
		       source, asof_timestamp, is_data_missing, is_market_closed
		FROM market_bars
		WHERE run_id = ?
		ORDER BY bar_date ASC, symbol ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query bars by run: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetBySymbol retrieves one symbol's bars for a run, ordered by date ASC.
func (s *MarketDataStore) GetBySymbol(ctx context.Context, runID, symbol string) ([]*domain.Bar, error) {
	query := `
		SELECT bar_date, symbol, asset_type,
		       open, high, low, close, volume,
		       source, asof_timestamp, is_data_missing, is_market_closed
		FROM market_bars
		WHERE run_id = ? AND symbol = ?
		ORDER BY bar_date ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, symbol)
	if err != nil {
		return nil, fmt.Errorf("query bars by symbol: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// runExists checks whether any bars exist for the run.
func (s *MarketDataStore) runExists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM market_bars WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanBars(rows chRows) ([]*domain.Bar, error) {
	var bars []*domain.Bar

	for rows.Next() {
		var bar domain.Bar
		var missing, closed uint8

		err := rows.Scan(
			&bar.Date, &bar.Symbol, &bar.AssetType,
			&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume,
			&bar.Source, &bar.AsOf, &missing, &closed,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}

		bar.Date = domain.Midnight(bar.Date)
		bar.IsDataMissing = missing != 0
		bar.IsMarketClosed = closed != 0
		bars = append(bars, &bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}
	return bars, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
