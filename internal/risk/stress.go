package risk

import (
	"fmt"
	"math"
	"time"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/stats"
)

// StressRow summarizes strategy behaviour inside one historical
// window. Sharpe is nil when volatility is zero or the window holds
// no observations.
type StressRow struct {
	Window       string    `json:"window"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Observations int       `json:"observations"`
	TotalPnL     float64   `json:"total_pnl"`
	MeanReturn   float64   `json:"mean_return"`
	Volatility   float64   `json:"volatility"`
	Sharpe       *float64  `json:"sharpe"`
}

// ComputeStressReport slices the P&L table into the configured date
// windows and reports per-window return statistics. An empty window
// still emits a row so the report shape is stable across configs.
func ComputeStressReport(pnl []domain.PnLRecord, windows []config.StressWindow) ([]StressRow, error) {
	strategyRet := StrategyReturns(pnl)

	rows := make([]StressRow, 0, len(windows))
	for _, w := range windows {
		start, err := domain.ParseDate(w.Start)
		if err != nil {
			return nil, fmt.Errorf("stress window %q: %w", w.Name, err)
		}
		end, err := domain.ParseDate(w.End)
		if err != nil {
			return nil, fmt.Errorf("stress window %q: %w", w.Name, err)
		}

		row := StressRow{Window: w.Name, Start: start, End: end}
		var windowRet []float64
		for i, rec := range pnl {
			if rec.Date.Before(start) || rec.Date.After(end) {
				continue
			}
			row.Observations++
			row.TotalPnL += rec.NetPnL
			windowRet = append(windowRet, strategyRet[i])
		}

		if len(windowRet) > 0 {
			row.MeanReturn = stats.Mean(windowRet)
			row.Volatility = stats.StdDevPop(windowRet)
			if row.Volatility > 0 {
				sharpe := math.Sqrt(252.0) * row.MeanReturn / row.Volatility
				row.Sharpe = &sharpe
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
