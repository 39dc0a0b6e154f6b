package postgres

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

func createTestSummary(runID string, generatedAt time.Time) *domain.RunSummary {
	return &domain.RunSummary{
		RunID:       runID,
		GeneratedAt: generatedAt,
		ConfigSnapshot: map[string]any{
			"root_symbol":     "VX",
			"initial_capital": 1_000_000.0,
		},
		Metrics: domain.RunMetrics{
			InitialCapital:         1_000_000,
			TotalNetPnL:            12_500.5,
			FinalEquity:            1_012_500.5,
			TotalCost:              430.0,
			Turnover:               3.2,
			HitRate:                ptr(0.54),
			Sharpe:                 ptr(1.1),
			RegularTradeCount:      42,
			RollTradeCount:         6,
			AttributionMaxAbsError: 2e-12,
		},
	}
}

func TestSummaryStore_InsertAndGetByRunID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSummaryStore(pool)

	summary := createTestSummary("run-1", time.Date(2024, 6, 10, 15, 4, 5, 0, time.UTC))
	require.NoError(t, store.Insert(ctx, summary))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, summary.GeneratedAt.Equal(got.GeneratedAt))
	assert.InDelta(t, 12_500.5, got.Metrics.TotalNetPnL, 1e-9)
	assert.InDelta(t, 1_012_500.5, got.Metrics.FinalEquity, 1e-9)
	require.NotNil(t, got.Metrics.HitRate)
	assert.InDelta(t, 0.54, *got.Metrics.HitRate, 1e-12)
	require.NotNil(t, got.Metrics.Sharpe)
	assert.Equal(t, 42, got.Metrics.RegularTradeCount)

	snapshot, ok := got.ConfigSnapshot.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "VX", snapshot["root_symbol"])
}

func TestSummaryStore_DuplicateRunID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSummaryStore(pool)

	at := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, createTestSummary("run-1", at)))

	err := store.Insert(ctx, createTestSummary("run-1", at.Add(time.Hour)))
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))
}

func TestSummaryStore_GetByRunIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSummaryStore(pool)
	_, err := store.GetByRunID(context.Background(), "missing-run")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestSummaryStore_ListOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSummaryStore(pool)

	base := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, createTestSummary("run-b", base.Add(time.Hour))))
	require.NoError(t, store.Insert(ctx, createTestSummary("run-a", base)))

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-a", got[0].RunID)
	assert.Equal(t, "run-b", got[1].RunID)
}

func TestSummaryStore_NilSummary(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSummaryStore(pool)
	err := store.Insert(context.Background(), nil)
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
}
