// Package main serves the research lab's HTTP surface: Prometheus
// metrics, health checks and a small read-only API over stored runs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/observability"
	"vol-rv-lab/internal/reporting"
	"vol-rv-lab/internal/storage"

	chstore "vol-rv-lab/internal/storage/clickhouse"
	pgstore "vol-rv-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config/backtest.yaml", "Backtest config YAML (risk section)")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if *postgresDSN == "" || *clickhouseDSN == "" {
		log.Fatal().Msg("--postgres-dsn and --clickhouse-dsn are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
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

	api := &apiServer{
		summaries: pgstore.NewSummaryStore(pool),
		pnl:       chstore.NewPnLStore(conn),
		attrib:    chstore.NewAttributionStore(conn),
		riskCfg:   cfg.Risk,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /healthz", api.handleHealth)
	mux.HandleFunc("GET /runs", api.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", api.handleGetRun)
	mux.HandleFunc("GET /runs/{id}/report", api.handleGetReport)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", *addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Warn().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

type apiServer struct {
	summaries storage.SummaryStore
	pnl       storage.PnLStore
	attrib    storage.AttributionStore
	riskCfg   config.RiskMetrics
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.summaries.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list runs")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *apiServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	summary, err := s.summaries.GetByRunID(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "run not found", http.StatusNotFound)
		return
	case err != nil:
		log.Error().Err(err).Msg("get run")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *apiServer) handleGetReport(w http.ResponseWriter, r *http.Request) {
	gen := reporting.NewGenerator(s.summaries, s.pnl, s.attrib)
	report, err := gen.Generate(r.Context(), r.PathValue("id"), s.riskCfg)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "run not found", http.StatusNotFound)
		return
	case err != nil:
		log.Error().Err(err).Msg("generate report")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(reporting.RenderMarkdown(report)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}
