// Package main loads raw vendor CSVs, standardizes them onto the
// canonical bar schema, runs calendar alignment and QA, and persists
// the resulting bars to ClickHouse under a run ID.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vol-rv-lab/internal/calendar"
	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/marketdata"
	"vol-rv-lab/internal/storage/migrations"

	chstore "vol-rv-lab/internal/storage/clickhouse"
)

func main() {
	dataConfigPath := flag.String("data-config", "config/data.yaml", "Data pipeline config YAML")
	runID := flag.String("run-id", "", "Run identifier (default: generated from timestamp)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	migrate := flag.Bool("migrate", false, "Apply ClickHouse migrations before ingesting")
	dryRun := flag.Bool("dry-run", false, "Standardize and QA only; skip persistence")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	dataCfg, err := config.LoadData(*dataConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load data config")
	}
	if len(dataCfg.Sources) == 0 {
		log.Fatal().Msg("no sources configured")
	}
	if *runID == "" {
		*runID = fmt.Sprintf("ingest-%s", time.Now().UTC().Format("20060102-150405"))
	}

	ctx := context.Background()
	asOf := time.Now().UTC()

	var bars []domain.Bar
	for _, src := range dataCfg.Sources {
		raw, err := marketdata.LoadRawCSV(src.Path)
		if err != nil {
			log.Fatal().Err(err).Str("source", src.Name).Msg("load csv")
		}
		std, err := marketdata.Standardize(raw, src, asOf)
		if err != nil {
			log.Fatal().Err(err).Str("source", src.Name).Msg("standardize")
		}
		log.Info().Str("source", src.Name).Int("rows", len(std)).Msg("source standardized")
		bars = append(bars, std...)
	}

	if err := marketdata.MustValidateSchema(bars); err != nil {
		log.Fatal().Err(err).Msg("schema validation")
	}

	aligned, missing, err := calendar.AlignToCalendar(bars, dataCfg.Calendar)
	if err != nil {
		log.Fatal().Err(err).Msg("calendar alignment")
	}
	filled, audit, fillCounts, err := calendar.ApplyFillRules(aligned, dataCfg.Fill)
	if err != nil {
		log.Fatal().Err(err).Msg("fill rules")
	}
	outliers, err := calendar.DetectOutliers(filled, dataCfg.Outliers)
	if err != nil {
		log.Fatal().Err(err).Msg("outlier detection")
	}

	log.Info().
		Int("bars", len(filled)).
		Int("missing", len(missing)).
		Int("fills", len(audit)).
		Interface("fill_counts", fillCounts).
		Int("outliers", len(outliers)).
		Msg("qa complete")

	if *dryRun {
		log.Info().Msg("dry run; skipping persistence")
		return
	}
	if *clickhouseDSN == "" {
		log.Fatal().Msg("--clickhouse-dsn is required unless --dry-run")
	}

	var conn *chstore.Conn
	if *migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	} else {
		conn, err = chstore.NewConn(ctx, *clickhouseDSN)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("connect to clickhouse")
	}
	defer conn.Close()

	rows := make([]*domain.Bar, len(filled))
	for i := range filled {
		rows[i] = &filled[i]
	}
	if err := chstore.NewMarketDataStore(conn).InsertBulk(ctx, *runID, rows); err != nil {
		log.Fatal().Err(err).Str("run_id", *runID).Msg("persist bars")
	}

	log.Info().Str("run_id", *runID).Int("bars", len(rows)).Msg("ingest complete")
}
