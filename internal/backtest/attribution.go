package backtest

import (
	"math"

	"vol-rv-lab/internal/domain"
)

// TradingDaysPerYear is the fixed annualization constant for daily
// bars. The carry accrual divides by it under the assumption that
// the supplied carry signal is already annualized.
const TradingDaysPerYear = 252.0

// BuildAttribution decomposes net P&L into carry/roll, spot/curve
// move, costs, a convexity placeholder and a residual. The carry slice
// must align one-to-one with the P&L rows; when it does not, the carry
// component degrades to zero for every row (fail-soft). The convexity
// component is always zero, an explicit placeholder. The
// residual absorbs any imbalance by construction, so the reconciliation
// identity holds exactly; callers verify it post hoc rather than
// assuming it.
func BuildAttribution(pnl []domain.PnLRecord, carry []float64, initialCapital float64) []domain.AttributionRecord {
	aligned := len(carry) == len(pnl)

	out := make([]domain.AttributionRecord, len(pnl))
	for i, row := range pnl {
		carryPnL := 0.0
		if aligned {
			carryPnL = carry[i] * initialCapital / TradingDaysPerYear
		}

		rec := domain.AttributionRecord{
			Date:              row.Date,
			Symbol:            row.Symbol,
			PnLTotal:          row.NetPnL,
			CarryRollPnL:      carryPnL,
			SpotCurveMovePnL:  row.GrossPnL - carryPnL,
			CostsPnL:          row.CostsPnL,
			ConvexityProxyPnL: 0,
		}
		rec.ResidualPnL = rec.PnLTotal - (rec.CarryRollPnL + rec.SpotCurveMovePnL + rec.CostsPnL + rec.ConvexityProxyPnL)
		out[i] = rec
	}
	return out
}

// MaxReconciliationError returns the largest absolute gap between
// pnl_total and the sum of its attribution components.
func MaxReconciliationError(attribution []domain.AttributionRecord) float64 {
	maxErr := 0.0
	for _, rec := range attribution {
		sum := rec.CarryRollPnL + rec.SpotCurveMovePnL + rec.CostsPnL + rec.ConvexityProxyPnL + rec.ResidualPnL
		if diff := math.Abs(rec.PnLTotal - sum); diff > maxErr {
			maxErr = diff
		}
	}
	return maxErr
}
