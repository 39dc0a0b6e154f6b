package reporting

import (
	"fmt"
	"strings"

	"vol-rv-lab/internal/domain"
)

// RenderSummaryCSV renders the run's scalar metrics as a one-row CSV.
func RenderSummaryCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("run_id,observations,initial_capital,total_net_pnl,final_equity,total_cost,")
	sb.WriteString("turnover,hit_rate,sharpe,regular_trade_count,roll_trade_count,attribution_max_abs_error\n")

	m := r.Summary.Metrics
	sb.WriteString(fmt.Sprintf("%s,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%s,%s,%d,%d,%.12e\n",
		r.RunID,
		r.Summary.Observations,
		m.InitialCapital,
		m.TotalNetPnL,
		m.FinalEquity,
		m.TotalCost,
		m.Turnover,
		csvOptional(m.HitRate),
		csvOptional(m.Sharpe),
		m.RegularTradeCount,
		m.RollTradeCount,
		m.AttributionMaxAbsError,
	))

	return sb.String()
}

// RenderStressCSV renders the stress-window rows as CSV.
func RenderStressCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("window,start,end,observations,total_pnl,mean_return,volatility,sharpe\n")
	for _, row := range r.Risk.Stress {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%.6f,%.6f,%.6f,%s\n",
			row.Window,
			domain.FormatDate(row.Start),
			domain.FormatDate(row.End),
			row.Observations,
			row.TotalPnL,
			row.MeanReturn,
			row.Volatility,
			csvOptional(row.Sharpe),
		))
	}

	return sb.String()
}

// csvOptional formats a nullable float; empty cell when nil.
func csvOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.6f", *v)
}
