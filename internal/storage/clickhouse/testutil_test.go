package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"vol-rv-lab/internal/domain"
)

// setupTestDB creates a ClickHouse container and returns a connection.
// Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60 * time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	conn, err := NewConn(ctx, dsn)
	require.NoError(t, err)

	applySchema(t, conn)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

// applySchema creates the run-scoped time series tables. The statements
// mirror the embedded migration files; the migrations package depends
// on this one, so the tests cannot import it without a cycle.
func applySchema(t *testing.T, conn *Conn) {
	t.Helper()
	ctx := context.Background()

	err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS market_bars (
			run_id          String,
			bar_date        Date,
			symbol          String,
			asset_type      String,
			open            Nullable(Float64),
			high            Nullable(Float64),
			low             Nullable(Float64),
			close           Nullable(Float64),
			volume          Nullable(Float64),
			source          String,
			asof_timestamp  DateTime64(3, 'UTC'),
			is_data_missing UInt8,
			is_market_closed UInt8
		) ENGINE = MergeTree()
		ORDER BY (run_id, symbol, bar_date)
		SETTINGS index_granularity = 8192
	`)
	require.NoError(t, err)

	err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS positions (
			run_id              String,
			position_date       Date,
			symbol              String,
			signal_value        Nullable(Float64),
			signal_date         Nullable(Date),
			target_position_raw Float64,
			target_position     Float64,
			position            Float64,
			position_prev       Float64,
			trade_qty           Float64,
			price               Float64,
			daily_return        Float64,
			is_roll_date        UInt8
		) ENGINE = MergeTree()
		ORDER BY (run_id, symbol, position_date)
		SETTINGS index_granularity = 8192
	`)
	require.NoError(t, err)

	err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pnl (
			run_id        String,
			pnl_date      Date,
			symbol        String,
			position_prev Float64,
			daily_return  Float64,
			gross_pnl     Float64,
			costs_pnl     Float64,
			net_pnl       Float64,
			equity        Float64
		) ENGINE = MergeTree()
		ORDER BY (run_id, symbol, pnl_date)
		SETTINGS index_granularity = 8192
	`)
	require.NoError(t, err)

	err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS attribution (
			run_id              String,
			attribution_date    Date,
			symbol              String,
			pnl_total           Float64,
			carry_roll_pnl      Float64,
			spot_curve_move_pnl Float64,
			costs_pnl           Float64,
			convexity_proxy_pnl Float64,
			residual_pnl        Float64
		) ENGINE = MergeTree()
		ORDER BY (run_id, symbol, attribution_date)
		SETTINGS index_granularity = 8192
	`)
	require.NoError(t, err)
}

// tradingDate returns a UTC-midnight weekday date offset business days
// from a fixed anchor.
func tradingDate(offset int) time.Time {
	d := domain.NewDate(2024, time.June, 3)
	for offset > 0 {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			offset--
		}
	}
	return d
}

// ptr is a helper to create pointers for test values.
func ptr[T any](v T) *T {
	return &v
}
