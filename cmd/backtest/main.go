// Package main runs a local backtest with in-memory storage and
// writes the run artifacts to disk. It is the fast path for research
// iteration; cmd/pipeline is the database-backed equivalent.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "config/backtest.yaml", "Backtest config YAML")
	dataConfigPath := flag.String("data-config", "config/data.yaml", "Data pipeline config YAML")
	runID := flag.String("run-id", "", "Run identifier (default: generated from timestamp)")
	outputDir := flag.String("output-dir", "", "Artifact output directory (default: config paths.output_dir)")
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
		*runID = fmt.Sprintf("bt-%s", time.Now().UTC().Format("20060102-150405"))
	}
	if *outputDir == "" {
		*outputDir = cfg.Paths.OutputDir
	}

	started := time.Now()
	runner := pipeline.NewRunner(cfg, dataCfg, pipeline.NewMemoryStores())
	artifacts, err := runner.Run(context.Background(), *runID)
	if err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}

	if err := pipeline.WriteArtifacts(artifacts, *outputDir); err != nil {
		log.Fatal().Err(err).Msg("write artifacts")
	}

	m := artifacts.Backtest.Metrics
	ev := log.Info().
		Dur("elapsed", time.Since(started)).
		Str("run_id", *runID).
		Int("observations", len(artifacts.Backtest.PnL)).
		Int("trades", len(artifacts.Backtest.Trades)).
		Float64("total_net_pnl", m.TotalNetPnL).
		Float64("final_equity", m.FinalEquity).
		Float64("total_cost", m.TotalCost).
		Float64("turnover", m.Turnover)
	if m.Sharpe != nil {
		ev = ev.Float64("sharpe", *m.Sharpe)
	}
	if m.HitRate != nil {
		ev = ev.Float64("hit_rate", *m.HitRate)
	}
	ev.Str("output_dir", *outputDir).Msg("backtest complete")
}
