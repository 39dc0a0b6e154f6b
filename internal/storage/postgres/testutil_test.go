package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"vol-rv-lab/internal/domain"
)

// setupTestDB creates a PostgreSQL container and applies migrations.
// Returns a cleanup function that must be called after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := pgcontainer.Run(ctx, "postgres:15-alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("test"),
		pgcontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	runMigrations(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// runMigrations applies the schema the stores expect. The statements
// mirror the embedded migration files; keeping them inline avoids an
// import cycle with the migrations package.
func runMigrations(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			run_id          TEXT             NOT NULL,
			trade_date      DATE             NOT NULL,
			signal_date     DATE,
			symbol          TEXT             NOT NULL,
			trade_type      TEXT             NOT NULL,
			target_position DOUBLE PRECISION NOT NULL,
			position_before DOUBLE PRECISION NOT NULL,
			position_after  DOUBLE PRECISION NOT NULL,
			trade_qty       DOUBLE PRECISION NOT NULL,
			price           DOUBLE PRECISION NOT NULL,
			notional        DOUBLE PRECISION NOT NULL,
			regular_cost    DOUBLE PRECISION NOT NULL,
			roll_cost       DOUBLE PRECISION NOT NULL,
			total_cost      DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, trade_date, trade_type)
		)`,
		`CREATE TABLE IF NOT EXISTS roll_events (
			run_id        TEXT NOT NULL,
			event_date    DATE NOT NULL,
			root_symbol   TEXT NOT NULL,
			from_contract TEXT NOT NULL,
			to_contract   TEXT NOT NULL,
			reason        TEXT NOT NULL,
			PRIMARY KEY (run_id, root_symbol, event_date)
		)`,
		`CREATE TABLE IF NOT EXISTS run_summaries (
			run_id          TEXT        PRIMARY KEY,
			generated_at    TIMESTAMPTZ NOT NULL,
			config_snapshot JSONB,
			metrics         JSONB       NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err, "failed to apply schema")
	}
}

// testDate returns a UTC-midnight weekday date offset business days
// from a fixed anchor.
func testDate(offset int) time.Time {
	d := domain.NewDate(2024, time.June, 3)
	for offset > 0 {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			offset--
		}
	}
	return d
}

// ptr is a helper to create pointers to values.
func ptr[T any](v T) *T {
	return &v
}
