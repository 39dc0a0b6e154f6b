package clickhouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/storage"
)

func createTestBar(offset int, symbol string, close float64) *domain.Bar {
	return &domain.Bar{
		Date:      tradingDate(offset),
		Symbol:    symbol,
		AssetType: "future",
		Open:      ptr(close - 0.1),
		High:      ptr(close + 0.2),
		Low:       ptr(close - 0.3),
		Close:     ptr(close),
		Volume:    ptr(1500.0),
		Source:    "test_feed",
		AsOf:      time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC),
	}
}

func TestMarketDataStore_InsertBulkAndGetByRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMarketDataStore(conn)

	bars := []*domain.Bar{
		createTestBar(1, "VXN4", 15.2),
		createTestBar(0, "VXM4", 14.8),
		createTestBar(0, "VXN4", 15.1),
	}
	require.NoError(t, store.InsertBulk(ctx, "run-1", bars))

	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by (date, symbol).
	assert.Equal(t, tradingDate(0), got[0].Date)
	assert.Equal(t, "VXM4", got[0].Symbol)
	assert.Equal(t, "VXN4", got[1].Symbol)
	assert.Equal(t, tradingDate(1), got[2].Date)

	require.NotNil(t, got[0].Close)
	assert.InDelta(t, 14.8, *got[0].Close, 1e-9)
	assert.Equal(t, "future", got[0].AssetType)
	assert.Equal(t, "test_feed", got[0].Source)
	assert.False(t, got[0].IsDataMissing)
}

func TestMarketDataStore_NullableFields(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMarketDataStore(conn)

	bar := createTestBar(0, "VXM4", 14.8)
	bar.Close = nil
	bar.Volume = nil
	bar.IsDataMissing = true
	require.NoError(t, store.InsertBulk(ctx, "run-1", []*domain.Bar{bar}))

	got, err := store.GetBySymbol(ctx, "run-1", "VXM4")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Close)
	assert.Nil(t, got[0].Volume)
	assert.True(t, got[0].IsDataMissing)
	require.NotNil(t, got[0].Open)
	assert.InDelta(t, 14.7, *got[0].Open, 1e-9)
}

func TestMarketDataStore_DuplicateRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMarketDataStore(conn)

	require.NoError(t, store.InsertBulk(ctx, "run-1", []*domain.Bar{
		createTestBar(0, "VXM4", 14.8),
	}))

	// A run is written once; a second batch for the same run is rejected.
	err := store.InsertBulk(ctx, "run-1", []*domain.Bar{
		createTestBar(1, "VXM4", 15.0),
	})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))

	// Other runs are unaffected.
	require.NoError(t, store.InsertBulk(ctx, "run-2", []*domain.Bar{
		createTestBar(0, "VXM4", 14.8),
	}))
}

func TestMarketDataStore_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMarketDataStore(conn)

	err := store.InsertBulk(ctx, "run-1", []*domain.Bar{
		createTestBar(0, "VXM4", 14.8),
		createTestBar(0, "VXM4", 14.9),
	})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))

	// The rejected batch must leave no rows behind.
	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMarketDataStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMarketDataStore(conn)

	err := store.InsertBulk(ctx, "", []*domain.Bar{createTestBar(0, "VXM4", 14.8)})
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))

	err = store.InsertBulk(ctx, "run-1", []*domain.Bar{{Date: tradingDate(0)}})
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
}
