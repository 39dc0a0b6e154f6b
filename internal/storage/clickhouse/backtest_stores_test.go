package clickhouse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/storage"
)

func createTestPosition(offset int, position float64) *domain.PositionRecord {
	signalDate := tradingDate(offset - 1)
	return &domain.PositionRecord{
		Date:              tradingDate(offset),
		Symbol:            "VX",
		SignalValue:       ptr(2.0),
		SignalDate:        &signalDate,
		TargetPositionRaw: position,
		TargetPosition:    position,
		Position:          position,
		PositionPrev:      0,
		TradeQty:          position,
		Price:             1.0,
		DailyReturn:       0.01,
	}
}

func TestPositionStore_InsertBulkAndGetByRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionStore(conn)

	rollPos := createTestPosition(1, 0.75)
	rollPos.IsRollDate = true
	positions := []*domain.PositionRecord{
		rollPos,
		createTestPosition(0, 0.5),
	}
	require.NoError(t, store.InsertBulk(ctx, "run-1", positions))

	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, tradingDate(0), got[0].Date)
	assert.InDelta(t, 0.5, got[0].Position, 1e-12)
	require.NotNil(t, got[0].SignalValue)
	assert.InDelta(t, 2.0, *got[0].SignalValue, 1e-12)
	require.NotNil(t, got[0].SignalDate)
	assert.Equal(t, tradingDate(-1), *got[0].SignalDate)
	assert.False(t, got[0].IsRollDate)
	assert.True(t, got[1].IsRollDate)
}

func TestPositionStore_NilSignalFields(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionStore(conn)

	pos := createTestPosition(0, 0)
	pos.SignalValue = nil
	pos.SignalDate = nil
	require.NoError(t, store.InsertBulk(ctx, "run-1", []*domain.PositionRecord{pos}))

	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].SignalValue)
	assert.Nil(t, got[0].SignalDate)
}

func TestPositionStore_DuplicateRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionStore(conn)

	require.NoError(t, store.InsertBulk(ctx, "run-1", []*domain.PositionRecord{
		createTestPosition(0, 0.5),
	}))

	err := store.InsertBulk(ctx, "run-1", []*domain.PositionRecord{
		createTestPosition(1, 0.75),
	})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))
}

func createTestPnL(offset int, net, equity float64) *domain.PnLRecord {
	return &domain.PnLRecord{
		Date:         tradingDate(offset),
		Symbol:       "VX",
		PositionPrev: 0.5,
		DailyReturn:  0.01,
		GrossPnL:     net + 50,
		CostsPnL:     -50,
		NetPnL:       net,
		Equity:       equity,
	}
}

func TestPnLStore_InsertBulkAndGetByRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPnLStore(conn)

	pnl := []*domain.PnLRecord{
		createTestPnL(1, -200, 1_000_300),
		createTestPnL(0, 500, 1_000_500),
	}
	require.NoError(t, store.InsertBulk(ctx, "run-1", pnl))

	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, tradingDate(0), got[0].Date)
	assert.InDelta(t, 500.0, got[0].NetPnL, 1e-9)
	assert.InDelta(t, 550.0, got[0].GrossPnL, 1e-9)
	assert.InDelta(t, -50.0, got[0].CostsPnL, 1e-9)
	assert.InDelta(t, 1_000_300.0, got[1].Equity, 1e-9)
}

func TestPnLStore_DuplicateRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPnLStore(conn)

	require.NoError(t, store.InsertBulk(ctx, "run-1", []*domain.PnLRecord{
		createTestPnL(0, 500, 1_000_500),
	}))

	err := store.InsertBulk(ctx, "run-1", []*domain.PnLRecord{
		createTestPnL(1, 100, 1_000_600),
	})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))
}

func createTestAttribution(offset int, total float64) *domain.AttributionRecord {
	carry := total * 0.2
	costs := -25.0
	spot := total - carry - costs
	return &domain.AttributionRecord{
		Date:              tradingDate(offset),
		Symbol:            "VX",
		PnLTotal:          total,
		CarryRollPnL:      carry,
		SpotCurveMovePnL:  spot,
		CostsPnL:          costs,
		ConvexityProxyPnL: 0,
		ResidualPnL:       0,
	}
}

func TestAttributionStore_InsertBulkAndGetByRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAttributionStore(conn)

	records := []*domain.AttributionRecord{
		createTestAttribution(1, -120),
		createTestAttribution(0, 480),
	}
	require.NoError(t, store.InsertBulk(ctx, "run-1", records))

	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, tradingDate(0), got[0].Date)
	assert.InDelta(t, 480.0, got[0].PnLTotal, 1e-9)

	// Components still reconcile after a round trip.
	sum := got[0].CarryRollPnL + got[0].SpotCurveMovePnL + got[0].CostsPnL +
		got[0].ConvexityProxyPnL + got[0].ResidualPnL
	assert.InDelta(t, got[0].PnLTotal, sum, 1e-9)
}

func TestAttributionStore_DuplicateRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAttributionStore(conn)

	require.NoError(t, store.InsertBulk(ctx, "run-1", []*domain.AttributionRecord{
		createTestAttribution(0, 480),
	}))

	err := store.InsertBulk(ctx, "run-1", []*domain.AttributionRecord{
		createTestAttribution(1, -120),
	})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))
}
