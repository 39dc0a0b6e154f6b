package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
)

func scenarioConfig() config.Config {
	cfg := config.Default()
	cfg.Backtest.InitialCapital = 1_000_000
	cfg.Backtest.PrimarySymbol = "VX"
	cfg.Backtest.SignalExecutionLagDays = 1
	cfg.Backtest.SignalScale = 2.0
	cfg.RiskControls.PositionCapAbs = 0.75
	cfg.RiskControls.LeverageCap = 0.75
	cfg.RiskControls.EnableRiskTarget = false
	cfg.Costs.CommissionBps = 1.0
	cfg.Costs.SlippageBps = 1.0
	return cfg
}

func scenarioInputs() Inputs {
	dates := weekdays(domain.NewDate(2024, time.January, 8), 8)
	returns := []float64{0, 0.01, -0.005, 0.002, 0.01, -0.01, 0.004, 0.003}
	signalValues := []float64{0, 2, 2, -2, -2, 1, 1, 0}

	market := make([]domain.MarketObservation, len(dates))
	signal := make([]domain.SignalPoint, len(dates))
	price := 20.0
	for i, d := range dates {
		price *= 1 + returns[i]
		market[i] = domain.MarketObservation{Date: d, Symbol: "VX", Price: price, DailyReturn: returns[i]}
		v := signalValues[i]
		signal[i] = domain.SignalPoint{Date: d, Value: &v}
	}

	return Inputs{
		Market: market,
		Signal: domain.SignalSeries{Name: "signal_term_structure_slope", Points: signal},
	}
}

func TestRunPositionLagsSignalByOneDay(t *testing.T) {
	inputs := scenarioInputs()
	result, err := Run(inputs, scenarioConfig())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Positions) != 8 {
		t.Fatalf("expected 8 position rows, got %d", len(result.Positions))
	}

	// Raw targets are tanh(v/2) of the previous day's signal, clipped
	// to the 0.75 cap. Day 0 has no executed signal and holds zero.
	inner := math.Tanh(0.5)
	want := []float64{0, 0, 0.75, 0.75, -0.75, -0.75, inner, inner}
	for i, pos := range result.Positions {
		if math.Abs(pos.Position-want[i]) > 1e-12 {
			t.Errorf("day %d (%s): position %v, want %v",
				i, domain.FormatDate(pos.Date), pos.Position, want[i])
		}
	}

	// Each signal change shows up in the position exactly one trading
	// day later, never the same day.
	for i := 1; i < len(result.Positions); i++ {
		prev, cur := result.Positions[i-1], result.Positions[i]
		if cur.Position != prev.Position && cur.SignalDate != nil && !cur.SignalDate.Before(cur.Date) {
			t.Errorf("day %d: position change driven by signal dated %s, not strictly before %s",
				i, domain.FormatDate(*cur.SignalDate), domain.FormatDate(cur.Date))
		}
	}
}

func TestRunTradesAndCosts(t *testing.T) {
	inputs := scenarioInputs()
	cfg := scenarioConfig()
	result, err := Run(inputs, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Metrics.RegularTradeCount != 3 {
		t.Fatalf("expected 3 rebalance trades, got %d", result.Metrics.RegularTradeCount)
	}

	// Second rebalance flips 0.75 to -0.75: qty -1.5, costed at 2 bps
	// of the traded notional.
	flip := result.Trades[1]
	if math.Abs(flip.TradeQty-(-1.5)) > 1e-12 {
		t.Errorf("flip qty %v, want -1.5", flip.TradeQty)
	}
	wantCost := 1.5 * cfg.Backtest.InitialCapital * 2.0 / 10_000.0
	if math.Abs(flip.TotalCost-wantCost) > 1e-9 {
		t.Errorf("flip cost %v, want %v", flip.TotalCost, wantCost)
	}
}

func TestRunRollTradeOnRollDate(t *testing.T) {
	inputs := scenarioInputs()
	rollDate := inputs.Market[4].Date
	inputs.RollLog = []domain.RollEvent{{
		Date:         rollDate,
		FromContract: "VXF4",
		ToContract:   "VXG4",
		Reason:       domain.RollReasonBeforeExpiry(5),
		RootSymbol:   "VX",
	}}

	cfg := scenarioConfig()
	result, err := Run(inputs, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Metrics.RollTradeCount != 1 {
		t.Fatalf("expected 1 roll trade, got %d", result.Metrics.RollTradeCount)
	}
	var roll domain.TradeRecord
	for _, trade := range result.Trades {
		if trade.TradeType == domain.TradeTypeRoll {
			roll = trade
		}
	}
	if !roll.Date.Equal(rollDate) {
		t.Errorf("roll trade date %s, want %s", domain.FormatDate(roll.Date), domain.FormatDate(rollDate))
	}
	// Roll cost is on the full held position, not the day's delta.
	wantNotional := 0.75 * cfg.Backtest.InitialCapital
	if math.Abs(roll.Notional-wantNotional) > 1e-9 {
		t.Errorf("roll notional %v, want %v", roll.Notional, wantNotional)
	}
	if roll.PositionBefore != roll.PositionAfter {
		t.Errorf("roll must not change the position: before %v after %v", roll.PositionBefore, roll.PositionAfter)
	}
}

func TestRunPnLAndAttributionIdentity(t *testing.T) {
	inputs := scenarioInputs()
	cfg := scenarioConfig()
	result, err := Run(inputs, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Gross P&L is yesterday's position against today's return.
	for i, row := range result.PnL {
		wantGross := result.Positions[i].PositionPrev * inputs.Market[i].DailyReturn * cfg.Backtest.InitialCapital
		if math.Abs(row.GrossPnL-wantGross) > 1e-9 {
			t.Errorf("day %d: gross %v, want %v", i, row.GrossPnL, wantGross)
		}
	}

	// Equity compounds net P&L from initial capital.
	equity := cfg.Backtest.InitialCapital
	for i, row := range result.PnL {
		equity += row.NetPnL
		if math.Abs(row.Equity-equity) > 1e-9 {
			t.Errorf("day %d: equity %v, want %v", i, row.Equity, equity)
		}
	}

	if result.Metrics.AttributionMaxAbsError > 1e-8 {
		t.Errorf("attribution reconciliation error %v exceeds tolerance", result.Metrics.AttributionMaxAbsError)
	}
	if math.Abs(result.Metrics.FinalEquity-equity) > 1e-9 {
		t.Errorf("final equity %v, want %v", result.Metrics.FinalEquity, equity)
	}
	if result.Metrics.HitRate == nil || result.Metrics.Sharpe == nil {
		t.Error("expected hit rate and sharpe to be defined for a non-degenerate run")
	}
}

func TestRunCarryAttribution(t *testing.T) {
	inputs := scenarioInputs()
	carryPoints := make([]domain.SignalPoint, len(inputs.Market))
	for i, obs := range inputs.Market {
		v := 0.05
		carryPoints[i] = domain.SignalPoint{Date: obs.Date, Value: &v}
	}
	inputs.Carry = domain.SignalSeries{Name: "signal_carry_roll_down", Points: carryPoints}

	cfg := scenarioConfig()
	result, err := Run(inputs, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantCarry := 0.05 * cfg.Backtest.InitialCapital / TradingDaysPerYear
	for i, rec := range result.Attribution {
		if math.Abs(rec.CarryRollPnL-wantCarry) > 1e-9 {
			t.Errorf("day %d: carry %v, want %v", i, rec.CarryRollPnL, wantCarry)
		}
	}
}

func TestRunZeroLagGuard(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Backtest.SignalExecutionLagDays = 0
	cfg.Backtest.EnforceNextBarExecution = true

	if _, err := Run(scenarioInputs(), cfg); !errors.Is(err, ErrZeroLagGuard) {
		t.Fatalf("expected ErrZeroLagGuard, got %v", err)
	}
}

func TestRunRejectsEmptyAndUnsortedMarket(t *testing.T) {
	cfg := scenarioConfig()

	if _, err := Run(Inputs{}, cfg); !errors.Is(err, ErrEmptyMarket) {
		t.Fatalf("expected ErrEmptyMarket, got %v", err)
	}

	inputs := scenarioInputs()
	inputs.Market[1], inputs.Market[2] = inputs.Market[2], inputs.Market[1]
	if _, err := Run(inputs, cfg); !errors.Is(err, ErrMarketOrdering) {
		t.Fatalf("expected ErrMarketOrdering, got %v", err)
	}
}
