package backtest

import (
	"time"

	"vol-rv-lab/internal/domain"
)

// BuildPnL aggregates daily gross/cost/net P&L and compounds equity in
// date order. Gross P&L is yesterday's closing position against
// today's return; positions established today first earn tomorrow,
// independent of the execution-lag guard. Equity is initial capital
// plus the running net P&L sum; it is never re-derived from trades.
func BuildPnL(positions []domain.PositionRecord, trades []domain.TradeRecord, initialCapital float64) []domain.PnLRecord {
	dailyCosts := make(map[time.Time]float64)
	for _, t := range trades {
		dailyCosts[t.Date] += t.TotalCost
	}

	pnl := make([]domain.PnLRecord, len(positions))
	equity := initialCapital
	for i, row := range positions {
		gross := row.PositionPrev * row.DailyReturn * initialCapital
		costs := -dailyCosts[row.Date]
		net := gross + costs
		equity += net

		pnl[i] = domain.PnLRecord{
			Date:         row.Date,
			Symbol:       row.Symbol,
			PositionPrev: row.PositionPrev,
			DailyReturn:  row.DailyReturn,
			GrossPnL:     gross,
			CostsPnL:     costs,
			NetPnL:       net,
			Equity:       equity,
		}
	}
	return pnl
}
