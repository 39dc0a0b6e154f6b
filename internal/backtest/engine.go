package backtest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/stats"
)

// Engine errors.
var (
	ErrEmptyMarket    = errors.New("market series is empty")
	ErrMarketOrdering = errors.New("market series dates must be strictly ascending")
	ErrZeroLagGuard   = errors.New("no-lookahead guard: signal_execution_lag_days must be >= 1 when enforce_next_bar_execution is true")
)

// Inputs bundles the externally supplied series a run consumes.
type Inputs struct {
	Market  []domain.MarketObservation
	Signal  domain.SignalSeries
	Carry   domain.SignalSeries // optional; degrades to zero carry attribution
	RollLog []domain.RollEvent  // may be empty
}

// Result holds the four output tables and the scalar metrics of a run.
// All tables are immutable once returned.
type Result struct {
	Positions   []domain.PositionRecord
	Trades      []domain.TradeRecord
	PnL         []domain.PnLRecord
	Attribution []domain.AttributionRecord
	Metrics     domain.RunMetrics
}

// Run executes a full backtest: execution mapping, position sizing
// under constraints, trade and cost generation, P&L accounting and
// attribution. It is a deterministic batch computation over the whole
// date range; every windowed statistic sees only strictly-prior data.
// Configuration and input-contract violations fail before any
// computation; output invariants are verified before returning.
func Run(inputs Inputs, cfg config.Config) (*Result, error) {
	bt := cfg.Backtest

	// The zero-lag guard fires at backtest start, before any mapping.
	if bt.EnforceNextBarExecution && bt.SignalExecutionLagDays < 1 {
		return nil, ErrZeroLagGuard
	}
	if bt.SignalScale <= 0 {
		return nil, ErrInvalidSignalScale
	}
	if len(inputs.Market) == 0 {
		return nil, ErrEmptyMarket
	}

	dates := make([]time.Time, len(inputs.Market))
	for i, obs := range inputs.Market {
		if i > 0 && !obs.Date.After(dates[i-1]) {
			return nil, fmt.Errorf("%w: %s then %s", ErrMarketOrdering,
				domain.FormatDate(dates[i-1]), domain.FormatDate(obs.Date))
		}
		dates[i] = obs.Date
	}

	mappings, err := MapSignalToExecution(inputs.Signal.Points, dates, bt.SignalExecutionLagDays)
	if err != nil {
		return nil, err
	}

	positions, err := buildPositions(inputs, mappings, cfg)
	if err != nil {
		return nil, err
	}

	trades := GenerateTrades(positions, cfg.Costs, bt.InitialCapital)
	pnl := BuildPnL(positions, trades, bt.InitialCapital)
	attribution := BuildAttribution(pnl, alignCarry(inputs.Carry, pnl), bt.InitialCapital)

	result := &Result{
		Positions:   positions,
		Trades:      trades,
		PnL:         pnl,
		Attribution: attribution,
		Metrics:     buildMetrics(trades, pnl, attribution, bt.InitialCapital),
	}

	if err := ValidateResult(result, cfg); err != nil {
		return nil, err
	}
	return result, nil
}

// buildPositions constructs the dense daily position frame from the
// market calendar, the execution plan and the roll log.
func buildPositions(inputs Inputs, mappings []domain.ExecutionMapping, cfg config.Config) ([]domain.PositionRecord, error) {
	execValue := make(map[time.Time]float64, len(mappings))
	execSignalDate := make(map[time.Time]time.Time, len(mappings))
	for _, m := range mappings {
		execValue[m.ExecutionDate] = m.SignalValue
		execSignalDate[m.ExecutionDate] = m.SignalDate
	}

	rollDates := make(map[time.Time]struct{}, len(inputs.RollLog))
	for _, event := range inputs.RollLog {
		rollDates[event.Date] = struct{}{}
	}

	positions := make([]domain.PositionRecord, len(inputs.Market))
	returns := make([]float64, len(inputs.Market))

	// Raw targets: squash mapped signals, forward-fill across gaps,
	// zero before the first valid observation.
	targetRaw := make([]float64, len(inputs.Market))
	lastRaw := 0.0
	for i, obs := range inputs.Market {
		returns[i] = obs.DailyReturn

		rec := domain.PositionRecord{
			Date:        obs.Date,
			Symbol:      cfg.Backtest.PrimarySymbol,
			Price:       obs.Price,
			DailyReturn: obs.DailyReturn,
		}

		if value, ok := execValue[obs.Date]; ok {
			v := value
			rec.SignalValue = &v
			sd := execSignalDate[obs.Date]
			rec.SignalDate = &sd

			raw, err := SignalToTargetPosition(value, cfg.Backtest.SignalScale)
			if err != nil {
				return nil, err
			}
			lastRaw = raw
		}
		targetRaw[i] = lastRaw
		rec.TargetPositionRaw = lastRaw

		_, rec.IsRollDate = rollDates[obs.Date]
		positions[i] = rec
	}

	constrained := ApplyPositionConstraints(targetRaw, returns, cfg.RiskControls)

	prev := 0.0
	for i := range positions {
		positions[i].TargetPosition = constrained[i]
		positions[i].Position = constrained[i]
		positions[i].PositionPrev = prev
		positions[i].TradeQty = positions[i].Position - prev
		prev = positions[i].Position
	}

	return positions, nil
}

// alignCarry maps the carry signal onto the P&L date sequence, nulls
// and missing dates contributing zero.
func alignCarry(carry domain.SignalSeries, pnl []domain.PnLRecord) []float64 {
	byDate := make(map[time.Time]float64, len(carry.Points))
	for _, p := range carry.Points {
		if p.Value != nil {
			byDate[p.Date] = *p.Value
		}
	}

	aligned := make([]float64, len(pnl))
	for i, row := range pnl {
		aligned[i] = byDate[row.Date]
	}
	return aligned
}

// buildMetrics derives the scalar run summary.
func buildMetrics(trades []domain.TradeRecord, pnl []domain.PnLRecord, attribution []domain.AttributionRecord, initialCapital float64) domain.RunMetrics {
	metrics := domain.RunMetrics{
		InitialCapital:         initialCapital,
		FinalEquity:            initialCapital,
		AttributionMaxAbsError: MaxReconciliationError(attribution),
	}

	for _, t := range trades {
		metrics.TotalCost += t.TotalCost
		metrics.Turnover += t.Notional / initialCapital
		switch t.TradeType {
		case domain.TradeTypeRebalance:
			metrics.RegularTradeCount++
		case domain.TradeTypeRoll:
			metrics.RollTradeCount++
		}
	}

	if len(pnl) > 0 {
		positiveDays := 0
		dailyReturns := make([]float64, len(pnl))
		for i, row := range pnl {
			metrics.TotalNetPnL += row.NetPnL
			dailyReturns[i] = row.NetPnL / initialCapital
			if row.NetPnL > 0 {
				positiveDays++
			}
		}
		metrics.FinalEquity = pnl[len(pnl)-1].Equity

		hitRate := float64(positiveDays) / float64(len(pnl))
		metrics.HitRate = &hitRate

		if len(dailyReturns) > 1 {
			std := stats.StdDevPop(dailyReturns)
			if std > 0 {
				sharpe := math.Sqrt(TradingDaysPerYear) * stats.Mean(dailyReturns) / std
				metrics.Sharpe = &sharpe
			}
		}
	}

	return metrics
}
