// Package main computes the standalone risk report for a stored run:
// historical VaR/CVaR, drawdown, rolling factor exposures and stress
// windows, printed as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/risk"

	chstore "vol-rv-lab/internal/storage/clickhouse"
)

type exposureRow struct {
	Date            time.Time `json:"date"`
	StrategyReturn  float64   `json:"strategy_return"`
	BenchmarkReturn float64   `json:"benchmark_return"`
	PositionAbs     float64   `json:"position_abs"`
	BetaProxy       *float64  `json:"beta_proxy"`
	VegaProxy       *float64  `json:"vega_proxy"`
	GammaProxy      *float64  `json:"gamma_proxy"`
}

type riskReport struct {
	RunID          string               `json:"run_id"`
	Observations   int                  `json:"observations"`
	VarConfidence  float64              `json:"var_confidence"`
	VarHorizonDays int                  `json:"var_horizon_days"`
	VarCvar        risk.VarCvar         `json:"var_cvar"`
	Drawdown       risk.DrawdownSummary `json:"drawdown"`
	Exposures      []exposureRow        `json:"exposures"`
	Stress         []risk.StressRow     `json:"stress"`
}

func main() {
	configPath := flag.String("config", "config/backtest.yaml", "Backtest config YAML (risk section)")
	runID := flag.String("run-id", "", "Run identifier to analyze (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if *runID == "" {
		log.Fatal().Msg("--run-id is required")
	}
	if *clickhouseDSN == "" {
		log.Fatal().Msg("--clickhouse-dsn is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()
	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to clickhouse")
	}
	defer conn.Close()

	pnlRows, err := chstore.NewPnLStore(conn).GetByRun(ctx, *runID)
	if err != nil {
		log.Fatal().Err(err).Str("run_id", *runID).Msg("load pnl")
	}
	if len(pnlRows) == 0 {
		log.Fatal().Str("run_id", *runID).Msg("no pnl rows for run")
	}
	positionRows, err := chstore.NewPositionStore(conn).GetByRun(ctx, *runID)
	if err != nil {
		log.Fatal().Err(err).Str("run_id", *runID).Msg("load positions")
	}

	pnl := make([]domain.PnLRecord, len(pnlRows))
	for i, r := range pnlRows {
		pnl[i] = *r
	}
	positions := make([]domain.PositionRecord, len(positionRows))
	for i, r := range positionRows {
		positions[i] = *r
	}

	report, err := buildReport(*runID, pnl, positions, cfg.Risk)
	if err != nil {
		log.Fatal().Err(err).Msg("compute risk report")
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("encode report")
	}
	fmt.Println(string(out))
}

func buildReport(runID string, pnl []domain.PnLRecord, positions []domain.PositionRecord, riskCfg config.RiskMetrics) (*riskReport, error) {
	varCvar, err := risk.HistoricalVarCvar(risk.StrategyReturns(pnl), riskCfg.VarConfidence, riskCfg.VarHorizonDays)
	if err != nil {
		return nil, fmt.Errorf("var/cvar: %w", err)
	}
	stress, err := risk.ComputeStressReport(pnl, riskCfg.StressWindows)
	if err != nil {
		return nil, fmt.Errorf("stress windows: %w", err)
	}

	exposures := risk.ComputeExposures(pnl, positions, riskCfg.ExposureWindow)
	rows := make([]exposureRow, len(exposures))
	for i, e := range exposures {
		rows[i] = exposureRow(e)
	}

	return &riskReport{
		RunID:          runID,
		Observations:   len(pnl),
		VarConfidence:  riskCfg.VarConfidence,
		VarHorizonDays: riskCfg.VarHorizonDays,
		VarCvar:        varCvar,
		Drawdown:       risk.SummarizeDrawdown(risk.ComputeDrawdown(pnl)),
		Exposures:      rows,
		Stress:         stress,
	}, nil
}
