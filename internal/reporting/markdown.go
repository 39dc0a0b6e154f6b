package reporting

import (
	"fmt"
	"strings"
	"time"

	"vol-rv-lab/internal/domain"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# %s\n\n", r.Title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: %s\n\n", r.RunID))

	// Results
	sb.WriteString("## Results\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	m := r.Summary.Metrics
	sb.WriteString(fmt.Sprintf("| Observations | %d |\n", r.Summary.Observations))
	if r.Summary.DateStart != nil && r.Summary.DateEnd != nil {
		sb.WriteString(fmt.Sprintf("| Date Range | %s to %s |\n",
			domain.FormatDate(*r.Summary.DateStart), domain.FormatDate(*r.Summary.DateEnd)))
	}
	sb.WriteString(fmt.Sprintf("| Initial Capital | %.2f |\n", m.InitialCapital))
	sb.WriteString(fmt.Sprintf("| Total Net PnL | %.2f |\n", m.TotalNetPnL))
	sb.WriteString(fmt.Sprintf("| Final Equity | %.2f |\n", m.FinalEquity))
	sb.WriteString(fmt.Sprintf("| Total Cost | %.2f |\n", m.TotalCost))
	sb.WriteString(fmt.Sprintf("| Turnover | %.4f |\n", m.Turnover))
	sb.WriteString(fmt.Sprintf("| Hit Rate | %s |\n", fmtOptional(m.HitRate, "%.4f")))
	sb.WriteString(fmt.Sprintf("| Sharpe | %s |\n", fmtOptional(m.Sharpe, "%.4f")))
	sb.WriteString(fmt.Sprintf("| Rebalance Trades | %d |\n", m.RegularTradeCount))
	sb.WriteString(fmt.Sprintf("| Roll Trades | %d |\n", m.RollTradeCount))
	sb.WriteString("\n")

	// Attribution
	sb.WriteString("## PnL Attribution\n\n")
	sb.WriteString("| Component | Total |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Carry / Roll | %.2f |\n", r.Attribution.CarryRoll))
	sb.WriteString(fmt.Sprintf("| Spot / Curve Move | %.2f |\n", r.Attribution.SpotCurveMove))
	sb.WriteString(fmt.Sprintf("| Costs | %.2f |\n", r.Attribution.Costs))
	sb.WriteString(fmt.Sprintf("| Convexity Proxy | %.2f |\n", r.Attribution.ConvexityProxy))
	sb.WriteString(fmt.Sprintf("| Residual | %.2f |\n", r.Attribution.Residual))
	sb.WriteString(fmt.Sprintf("| Total | %.2f |\n", r.Attribution.TotalPnL))
	sb.WriteString(fmt.Sprintf("\nMax reconciliation error: %.2e\n\n", r.Attribution.MaxAbsError))

	// Risk
	sb.WriteString("## Risk Summary\n\n")
	if r.Risk.VarCvar != nil {
		sb.WriteString(fmt.Sprintf("VaR(%.0f%%, %dd): %.6f | CVaR: %.6f\n\n",
			r.Risk.VarConfidence*100, r.Risk.VarHorizonDays,
			r.Risk.VarCvar.VaR, r.Risk.VarCvar.CVaR))
	} else {
		sb.WriteString("No P&L observations; VaR/CVaR not computed.\n\n")
	}

	sb.WriteString(fmt.Sprintf("Max drawdown: %.4f | Max duration: %d days | Recovery: %s\n\n",
		r.Risk.Drawdown.MaxDrawdown, r.Risk.Drawdown.MaxDuration,
		fmtRecovery(r.Risk.Drawdown.RecoveryPeriods)))

	if len(r.Risk.Stress) > 0 {
		sb.WriteString("### Stress Windows\n\n")
		sb.WriteString("| Window | Start | End | Obs | Total PnL | Mean Return | Volatility | Sharpe |\n")
		sb.WriteString("|--------|-------|-----|-----|-----------|-------------|------------|--------|\n")
		for _, row := range r.Risk.Stress {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %.2f | %.6f | %.6f | %s |\n",
				row.Window, domain.FormatDate(row.Start), domain.FormatDate(row.End),
				row.Observations, row.TotalPnL, row.MeanReturn, row.Volatility,
				fmtOptional(row.Sharpe, "%.4f")))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func fmtOptional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

func fmtRecovery(periods *int) string {
	if periods == nil {
		return "none"
	}
	return fmt.Sprintf("%d days", *periods)
}
