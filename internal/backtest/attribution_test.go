package backtest

import (
	"math"
	"testing"
	"time"

	"vol-rv-lab/internal/domain"
)

func samplePnL() []domain.PnLRecord {
	dates := weekdays(domain.NewDate(2024, time.January, 8), 3)
	return []domain.PnLRecord{
		{Date: dates[0], Symbol: "VX", GrossPnL: 1000, CostsPnL: -50, NetPnL: 950},
		{Date: dates[1], Symbol: "VX", GrossPnL: -400, CostsPnL: 0, NetPnL: -400},
		{Date: dates[2], Symbol: "VX", GrossPnL: 250, CostsPnL: -10, NetPnL: 240},
	}
}

func TestBuildAttributionReconciles(t *testing.T) {
	pnl := samplePnL()
	carry := []float64{0.02, 0.03, -0.01}
	capital := 1_000_000.0

	attribution := BuildAttribution(pnl, carry, capital)
	if len(attribution) != len(pnl) {
		t.Fatalf("expected %d rows, got %d", len(pnl), len(attribution))
	}

	for i, rec := range attribution {
		wantCarry := carry[i] * capital / TradingDaysPerYear
		if math.Abs(rec.CarryRollPnL-wantCarry) > 1e-9 {
			t.Errorf("row %d: carry %v, want %v", i, rec.CarryRollPnL, wantCarry)
		}
		if math.Abs(rec.SpotCurveMovePnL-(pnl[i].GrossPnL-wantCarry)) > 1e-9 {
			t.Errorf("row %d: spot_curve %v, want %v", i, rec.SpotCurveMovePnL, pnl[i].GrossPnL-wantCarry)
		}
		if rec.ConvexityProxyPnL != 0 {
			t.Errorf("row %d: convexity %v, want 0", i, rec.ConvexityProxyPnL)
		}
	}

	if maxErr := MaxReconciliationError(attribution); maxErr > 1e-8 {
		t.Errorf("reconciliation error %v exceeds tolerance", maxErr)
	}
}

func TestBuildAttributionUnalignedCarryDegradesToZero(t *testing.T) {
	pnl := samplePnL()

	attribution := BuildAttribution(pnl, []float64{0.02}, 1_000_000)
	for i, rec := range attribution {
		if rec.CarryRollPnL != 0 {
			t.Errorf("row %d: carry %v, want 0", i, rec.CarryRollPnL)
		}
		if rec.SpotCurveMovePnL != pnl[i].GrossPnL {
			t.Errorf("row %d: spot_curve %v, want gross %v", i, rec.SpotCurveMovePnL, pnl[i].GrossPnL)
		}
	}
	if maxErr := MaxReconciliationError(attribution); maxErr > 1e-8 {
		t.Errorf("reconciliation error %v exceeds tolerance", maxErr)
	}
}
