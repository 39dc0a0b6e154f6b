// Package pipeline orchestrates the end-to-end research run:
// standardize, align and QA, rolls, signals, backtest, persist and
// report. The report stage computes the risk section from the
// persisted P&L.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vol-rv-lab/internal/backtest"
	"vol-rv-lab/internal/calendar"
	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/marketdata"
	"vol-rv-lab/internal/observability"
	"vol-rv-lab/internal/reporting"
	"vol-rv-lab/internal/rolls"
	"vol-rv-lab/internal/signals"
	"vol-rv-lab/internal/storage"
	"vol-rv-lab/internal/storage/memory"
)

// Pipeline errors.
var (
	ErrNoSources      = errors.New("data config lists no sources")
	ErrSignalNotFound = errors.New("configured signal column was not produced by any enabled signal")
)

// Stores bundles the persistence interfaces a run writes to.
type Stores struct {
	Market      storage.MarketDataStore
	Rolls       storage.RollEventStore
	Trades      storage.TradeStore
	Positions   storage.PositionStore
	PnL         storage.PnLStore
	Attribution storage.AttributionStore
	Summaries   storage.SummaryStore
}

// NewMemoryStores builds a Stores bundle backed by in-memory stores.
func NewMemoryStores() *Stores {
	return &Stores{
		Market:      memory.NewMarketDataStore(),
		Rolls:       memory.NewRollEventStore(),
		Trades:      memory.NewTradeStore(),
		Positions:   memory.NewPositionStore(),
		PnL:         memory.NewPnLStore(),
		Attribution: memory.NewAttributionStore(),
		Summaries:   memory.NewSummaryStore(),
	}
}

// Artifacts collects everything a run produced, for writing to disk
// and for inspection in tests.
type Artifacts struct {
	Bars         []domain.Bar
	MissingFlags []calendar.MissingFlag
	FillAudit    []calendar.FillAudit
	FillCounts   map[string]int
	Outliers     []calendar.OutlierMark
	Rolls        rolls.Result
	SignalStats  map[string]signals.Stats
	Backtest     *backtest.Result
	Summary      *domain.RunSummary
	Report       *reporting.Report
}

// Runner executes the full pipeline against one config pair.
type Runner struct {
	cfg      config.Config
	dataCfg  config.DataConfig
	stores   *Stores
	registry *signals.Registry
	clock    func() time.Time
}

// NewRunner creates a pipeline runner.
func NewRunner(cfg config.Config, dataCfg config.DataConfig, stores *Stores) *Runner {
	return &Runner{
		cfg:      cfg,
		dataCfg:  dataCfg,
		stores:   stores,
		registry: signals.NewRegistry(),
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// Run executes every stage in order and persists the artifacts under
// runID. The run is deterministic given identical inputs and clock.
func (r *Runner) Run(ctx context.Context, runID string) (*Artifacts, error) {
	artifacts := &Artifacts{}

	if err := r.runStage("standardize", func() error {
		bars, err := r.loadAndStandardize()
		if err != nil {
			return err
		}
		artifacts.Bars = bars
		return nil
	}); err != nil {
		return nil, err
	}

	if err := r.runStage("align_qa", func() error {
		return r.alignAndQA(artifacts)
	}); err != nil {
		return nil, err
	}

	if err := r.runStage("rolls", func() error {
		return r.buildRolls(artifacts)
	}); err != nil {
		return nil, err
	}

	var signalSeries []domain.SignalSeries
	if err := r.runStage("signals", func() error {
		series, stats, err := r.registry.Build(artifacts.Bars, r.dataCfg.Signals)
		if err != nil {
			return err
		}
		for _, s := range series {
			observability.RecordSignalComputed(s.Name)
		}
		signalSeries = series
		artifacts.SignalStats = stats
		return nil
	}); err != nil {
		return nil, err
	}

	if err := r.runStage("backtest", func() error {
		return r.runBacktest(artifacts, signalSeries)
	}); err != nil {
		return nil, err
	}

	if err := r.runStage("persist", func() error {
		return r.persist(ctx, runID, artifacts)
	}); err != nil {
		return nil, err
	}

	if err := r.runStage("report", func() error {
		report, err := reporting.NewGenerator(r.stores.Summaries, r.stores.PnL, r.stores.Attribution).
			WithClock(r.clock).
			Generate(ctx, runID, r.cfg.Risk)
		if err != nil {
			return err
		}
		artifacts.Report = report
		observability.DefaultMetrics.ReportsGenerated.Inc()
		return nil
	}); err != nil {
		return nil, err
	}

	observability.DefaultMetrics.LastSuccessfulRun.Set(float64(r.clock().Unix()))
	return artifacts, nil
}

// runStage times one stage and records its outcome.
func (r *Runner) runStage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordStageRun(name, status, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	return nil
}

// loadAndStandardize reads every configured source and merges the
// standardized bars. Schema validation fails fast with all errors.
func (r *Runner) loadAndStandardize() ([]domain.Bar, error) {
	if len(r.dataCfg.Sources) == 0 {
		return nil, ErrNoSources
	}

	asOf := r.clock()
	var bars []domain.Bar
	for _, src := range r.dataCfg.Sources {
		raw, err := marketdata.LoadRawCSV(src.Path)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		observability.RecordRowsLoaded(src.Source, len(raw.Rows))

		standardized, err := marketdata.Standardize(raw, src, asOf)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		observability.DefaultMetrics.BarsStandardized.Add(float64(len(standardized)))
		bars = append(bars, standardized...)
	}

	if err := marketdata.MustValidateSchema(bars); err != nil {
		observability.DefaultMetrics.SchemaViolations.Inc()
		return nil, err
	}
	return bars, nil
}

// alignAndQA reindexes bars to the trading calendar, applies the fill
// rules and marks outliers. Outliers are marked, never removed.
func (r *Runner) alignAndQA(artifacts *Artifacts) error {
	aligned, flags, err := calendar.AlignToCalendar(artifacts.Bars, r.dataCfg.Calendar)
	if err != nil {
		return err
	}

	filled, audit, counts, err := calendar.ApplyFillRules(aligned, r.dataCfg.Fill)
	if err != nil {
		return err
	}
	for field, n := range counts {
		observability.DefaultMetrics.MissingBarsFilled.WithLabelValues(field).Add(float64(n))
	}

	outliers, err := calendar.DetectOutliers(filled, r.dataCfg.Outliers)
	if err != nil {
		return err
	}
	observability.DefaultMetrics.OutliersMarked.Add(float64(len(outliers)))

	artifacts.Bars = filled
	artifacts.MissingFlags = flags
	artifacts.FillAudit = audit
	artifacts.FillCounts = counts
	artifacts.Outliers = outliers
	return nil
}

// buildRolls runs the roll engine when contract metadata is present
// and degrades to a no-roll passthrough otherwise.
func (r *Runner) buildRolls(artifacts *Artifacts) error {
	rows, ok, err := marketdata.LoadContractMetadata(r.dataCfg.Contracts, r.cfg.Roll)
	if err != nil {
		return err
	}

	if !ok {
		symbol := r.cfg.Backtest.PrimarySymbol
		var dates []time.Time
		for _, b := range artifacts.Bars {
			if b.Symbol == symbol {
				dates = append(dates, b.Date)
			}
		}
		artifacts.Rolls = rolls.Result{Continuous: rolls.Passthrough(symbol, dates)}
		return nil
	}

	artifacts.Rolls = rolls.BuildContinuous(rows, r.cfg.Roll.NDaysBeforeExpiry)
	observability.DefaultMetrics.RollEventsEmitted.Add(float64(len(artifacts.Rolls.RollLog)))
	return nil
}

// runBacktest selects the configured signal and carry series and runs
// the engine over the primary symbol's market series.
func (r *Runner) runBacktest(artifacts *Artifacts, series []domain.SignalSeries) error {
	bt := r.cfg.Backtest

	market, err := marketdata.BuildMarketSeries(artifacts.Bars, bt.PrimarySymbol, bt.PriceColumn)
	if err != nil {
		return err
	}

	signal, ok := findSeries(series, bt.SignalColumn)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSignalNotFound, bt.SignalColumn)
	}

	var carry domain.SignalSeries
	if bt.CarrySignalColumn != "" {
		// Missing carry degrades to zero carry attribution.
		carry, _ = findSeries(series, bt.CarrySignalColumn)
	}

	result, err := backtest.Run(backtest.Inputs{
		Market:  market,
		Signal:  signal,
		Carry:   carry,
		RollLog: artifacts.Rolls.RollLog,
	}, r.cfg)
	if err != nil {
		return err
	}

	for _, trade := range result.Trades {
		observability.RecordTradeGenerated(trade.TradeType)
	}
	observability.DefaultMetrics.ReconciliationGap.Set(result.Metrics.AttributionMaxAbsError)

	artifacts.Backtest = result
	return nil
}

// persist writes every table under the run ID and inserts the summary.
func (r *Runner) persist(ctx context.Context, runID string, artifacts *Artifacts) error {
	res := artifacts.Backtest

	bars := make([]*domain.Bar, len(artifacts.Bars))
	for i := range artifacts.Bars {
		bars[i] = &artifacts.Bars[i]
	}
	if err := r.stores.Market.InsertBulk(ctx, runID, bars); err != nil {
		return fmt.Errorf("persist bars: %w", err)
	}

	rollEvents := make([]*domain.RollEvent, len(artifacts.Rolls.RollLog))
	for i := range artifacts.Rolls.RollLog {
		rollEvents[i] = &artifacts.Rolls.RollLog[i]
	}
	if err := r.stores.Rolls.InsertBulk(ctx, runID, rollEvents); err != nil {
		return fmt.Errorf("persist roll events: %w", err)
	}

	positions := make([]*domain.PositionRecord, len(res.Positions))
	for i := range res.Positions {
		positions[i] = &res.Positions[i]
	}
	if err := r.stores.Positions.InsertBulk(ctx, runID, positions); err != nil {
		return fmt.Errorf("persist positions: %w", err)
	}

	trades := make([]*domain.TradeRecord, len(res.Trades))
	for i := range res.Trades {
		trades[i] = &res.Trades[i]
	}
	if err := r.stores.Trades.InsertBulk(ctx, runID, trades); err != nil {
		return fmt.Errorf("persist trades: %w", err)
	}

	pnl := make([]*domain.PnLRecord, len(res.PnL))
	for i := range res.PnL {
		pnl[i] = &res.PnL[i]
	}
	if err := r.stores.PnL.InsertBulk(ctx, runID, pnl); err != nil {
		return fmt.Errorf("persist pnl: %w", err)
	}

	attribution := make([]*domain.AttributionRecord, len(res.Attribution))
	for i := range res.Attribution {
		attribution[i] = &res.Attribution[i]
	}
	if err := r.stores.Attribution.InsertBulk(ctx, runID, attribution); err != nil {
		return fmt.Errorf("persist attribution: %w", err)
	}

	summary := &domain.RunSummary{
		RunID:       runID,
		GeneratedAt: r.clock(),
		ConfigSnapshot: map[string]any{
			"backtest": r.cfg,
			"data":     r.dataCfg,
		},
		Metrics: res.Metrics,
	}
	if err := r.stores.Summaries.Insert(ctx, summary); err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}
	artifacts.Summary = summary
	return nil
}

func findSeries(series []domain.SignalSeries, name string) (domain.SignalSeries, bool) {
	want := signals.EnsureSignalPrefix(name)
	for _, s := range series {
		if s.Name == want || s.Name == name {
			return s, true
		}
	}
	return domain.SignalSeries{}, false
}
