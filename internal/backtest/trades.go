package backtest

import (
	"math"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
)

// GenerateTrades turns day-over-day position deltas and roll-date
// flags into discrete trade records. A changed position emits a
// rebalance trade costed on the traded quantity; a roll date with a
// non-zero held position emits a separate roll trade costed on the
// full position being re-established in the new contract. Both may
// occur on the same date. Emitted records are never revised.
func GenerateTrades(positions []domain.PositionRecord, costs config.Costs, initialCapital float64) []domain.TradeRecord {
	regularBps := costs.CommissionBps + costs.SlippageBps
	rollBps := costs.EffectiveRollCostBps()

	var trades []domain.TradeRecord
	for _, row := range positions {
		if row.TradeQty != 0 {
			notional := math.Abs(row.TradeQty) * initialCapital
			regularCost := notional * regularBps / 10_000.0
			trades = append(trades, domain.TradeRecord{
				Date:           row.Date,
				SignalDate:     row.SignalDate,
				Symbol:         row.Symbol,
				TradeType:      domain.TradeTypeRebalance,
				TargetPosition: row.TargetPosition,
				PositionBefore: row.PositionPrev,
				PositionAfter:  row.Position,
				TradeQty:       row.TradeQty,
				Price:          row.Price,
				Notional:       notional,
				RegularCost:    regularCost,
				TotalCost:      regularCost,
			})
		}

		if row.IsRollDate && math.Abs(row.Position) > 0 {
			notional := math.Abs(row.Position) * initialCapital
			rollCost := notional * rollBps / 10_000.0
			trades = append(trades, domain.TradeRecord{
				Date:           row.Date,
				SignalDate:     row.SignalDate,
				Symbol:         row.Symbol,
				TradeType:      domain.TradeTypeRoll,
				TargetPosition: row.TargetPosition,
				PositionBefore: row.Position,
				PositionAfter:  row.Position,
				TradeQty:       row.Position,
				Price:          row.Price,
				Notional:       notional,
				RollCost:       rollCost,
				TotalCost:      rollCost,
			})
		}
	}
	return trades
}
