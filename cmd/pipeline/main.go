// Package main runs the full research pipeline end to end:
// standardize, align and QA, rolls, signals, backtest, persist, report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/pipeline"
	"vol-rv-lab/internal/storage/migrations"

	chstore "vol-rv-lab/internal/storage/clickhouse"
	pgstore "vol-rv-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config/backtest.yaml", "Backtest config YAML")
	dataConfigPath := flag.String("data-config", "config/data.yaml", "Data pipeline config YAML")
	runID := flag.String("run-id", "", "Run identifier (default: generated from timestamp)")
	outputDir := flag.String("output-dir", "", "Artifact output directory (default: config paths.output_dir)")

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	migrate := flag.Bool("migrate", false, "Apply database migrations before running")

	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	dataCfg, err := config.LoadData(*dataConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load data config")
	}

	if *runID == "" {
		*runID = fmt.Sprintf("run-%s", time.Now().UTC().Format("20060102-150405"))
	}
	if *outputDir == "" {
		*outputDir = cfg.Paths.OutputDir
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	stores, cleanup, err := buildStores(ctx, *useMemory, *postgresDSN, *clickhouseDSN, *migrate)
	if err != nil {
		log.Fatal().Err(err).Msg("storage setup")
	}
	defer cleanup()

	log.Info().
		Str("run_id", *runID).
		Str("primary_symbol", cfg.Backtest.PrimarySymbol).
		Str("signal", cfg.Backtest.SignalColumn).
		Msg("pipeline starting")

	started := time.Now()
	artifacts, err := pipeline.NewRunner(cfg, dataCfg, stores).Run(ctx, *runID)
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline failed")
	}

	if err := pipeline.WriteArtifacts(artifacts, *outputDir); err != nil {
		log.Fatal().Err(err).Msg("write artifacts")
	}

	metrics := artifacts.Backtest.Metrics
	log.Info().
		Dur("elapsed", time.Since(started)).
		Int("pnl_rows", len(artifacts.Backtest.PnL)).
		Int("trades", len(artifacts.Backtest.Trades)).
		Float64("total_net_pnl", metrics.TotalNetPnL).
		Float64("final_equity", metrics.FinalEquity).
		Str("output_dir", *outputDir).
		Msg("pipeline complete")
}

// buildStores selects memory or database-backed storage.
func buildStores(ctx context.Context, useMemory bool, postgresDSN, clickhouseDSN string, migrate bool) (*pipeline.Stores, func(), error) {
	if useMemory {
		return pipeline.NewMemoryStores(), func() {}, nil
	}

	if postgresDSN == "" {
		return nil, nil, fmt.Errorf("--postgres-dsn is required when not using --use-memory")
	}
	if clickhouseDSN == "" {
		return nil, nil, fmt.Errorf("--clickhouse-dsn is required when not using --use-memory")
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	var conn *chstore.Conn
	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		conn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
	} else {
		conn, err = chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
	}

	stores := &pipeline.Stores{
		Market:      chstore.NewMarketDataStore(conn),
		Rolls:       pgstore.NewRollEventStore(pool),
		Trades:      pgstore.NewTradeStore(pool),
		Positions:   chstore.NewPositionStore(conn),
		PnL:         chstore.NewPnLStore(conn),
		Attribution: chstore.NewAttributionStore(conn),
		Summaries:   pgstore.NewSummaryStore(pool),
	}
	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}
