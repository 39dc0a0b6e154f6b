// Package main regenerates the report artifacts for a stored run:
// report.md, summary.csv and stress.csv, built from the persisted
// run summary, P&L and attribution tables.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/reporting"

	chstore "vol-rv-lab/internal/storage/clickhouse"
	pgstore "vol-rv-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config/backtest.yaml", "Backtest config YAML (risk section)")
	runID := flag.String("run-id", "", "Run identifier to report on (required)")
	outputDir := flag.String("output-dir", "", "Artifact output directory (default: config paths.output_dir)")
	title := flag.String("title", "", "Report title (default: built-in)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if *runID == "" {
		log.Fatal().Msg("--run-id is required")
	}
	if *postgresDSN == "" || *clickhouseDSN == "" {
		log.Fatal().Msg("--postgres-dsn and --clickhouse-dsn are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if *outputDir == "" {
		*outputDir = cfg.Paths.OutputDir
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to clickhouse")
	}
	defer conn.Close()

	gen := reporting.NewGenerator(
		pgstore.NewSummaryStore(pool),
		chstore.NewPnLStore(conn),
		chstore.NewAttributionStore(conn),
	)
	if *title != "" {
		gen = gen.WithTitle(*title)
	}

	report, err := gen.Generate(ctx, *runID, cfg.Risk)
	if err != nil {
		log.Fatal().Err(err).Str("run_id", *runID).Msg("generate report")
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("create output dir")
	}
	files := map[string]string{
		"report.md":   reporting.RenderMarkdown(report),
		"summary.csv": reporting.RenderSummaryCSV(report),
		"stress.csv":  reporting.RenderStressCSV(report),
	}
	for name, content := range files {
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("write artifact")
		}
	}

	log.Info().
		Str("run_id", *runID).
		Int("observations", report.Summary.Observations).
		Float64("total_net_pnl", report.Summary.Metrics.TotalNetPnL).
		Str("output_dir", *outputDir).
		Msg("report written")
}
