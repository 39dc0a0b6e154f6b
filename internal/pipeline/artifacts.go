package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/reporting"
)

// WriteArtifacts writes the run's output files to outputDir:
// report.md, summary.json, summary.csv, stress.csv, trades.csv,
// positions.csv, pnl.csv, attribution.csv, roll_log.csv and
// qa_report.json. Output is deterministic given identical artifacts.
func WriteArtifacts(artifacts *Artifacts, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	files := map[string]string{
		"report.md":       reporting.RenderMarkdown(artifacts.Report),
		"summary.csv":     reporting.RenderSummaryCSV(artifacts.Report),
		"stress.csv":      reporting.RenderStressCSV(artifacts.Report),
		"trades.csv":      renderTradesCSV(artifacts.Backtest.Trades),
		"positions.csv":   renderPositionsCSV(artifacts.Backtest.Positions),
		"pnl.csv":         renderPnLCSV(artifacts.Backtest.PnL),
		"attribution.csv": renderAttributionCSV(artifacts.Backtest.Attribution),
		"roll_log.csv":    renderRollLogCSV(artifacts.Rolls.RollLog),
	}

	summaryJSON, err := json.MarshalIndent(artifacts.Summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	files["summary.json"] = string(summaryJSON) + "\n"

	qaJSON, err := renderQAReport(artifacts)
	if err != nil {
		return err
	}
	files["qa_report.json"] = qaJSON

	for name, content := range files {
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func renderTradesCSV(trades []domain.TradeRecord) string {
	var sb strings.Builder
	sb.WriteString("date,signal_date,symbol,trade_type,target_position,position_before,position_after,")
	sb.WriteString("trade_qty,price,notional,regular_cost,roll_cost,total_cost\n")

	for _, t := range trades {
		signalDate := ""
		if t.SignalDate != nil {
			signalDate = domain.FormatDate(*t.SignalDate)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.10f,%.10f,%.10f,%.10f,%.6f,%.6f,%.6f,%.6f,%.6f\n",
			domain.FormatDate(t.Date), signalDate, t.Symbol, t.TradeType,
			t.TargetPosition, t.PositionBefore, t.PositionAfter,
			t.TradeQty, t.Price, t.Notional, t.RegularCost, t.RollCost, t.TotalCost))
	}
	return sb.String()
}

func renderPositionsCSV(positions []domain.PositionRecord) string {
	var sb strings.Builder
	sb.WriteString("date,symbol,signal_value,signal_date,target_position_raw,target_position,")
	sb.WriteString("position,position_prev,trade_qty,price,daily_return,is_roll_date\n")

	for _, p := range positions {
		signalValue := ""
		if p.SignalValue != nil {
			signalValue = fmt.Sprintf("%.10f", *p.SignalValue)
		}
		signalDate := ""
		if p.SignalDate != nil {
			signalDate = domain.FormatDate(*p.SignalDate)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.10f,%.10f,%.10f,%.10f,%.10f,%.6f,%.10f,%t\n",
			domain.FormatDate(p.Date), p.Symbol, signalValue, signalDate,
			p.TargetPositionRaw, p.TargetPosition,
			p.Position, p.PositionPrev, p.TradeQty, p.Price, p.DailyReturn, p.IsRollDate))
	}
	return sb.String()
}

func renderPnLCSV(pnl []domain.PnLRecord) string {
	var sb strings.Builder
	sb.WriteString("date,symbol,position_prev,daily_return,gross_pnl,costs_pnl,net_pnl,equity\n")

	for _, rec := range pnl {
		sb.WriteString(fmt.Sprintf("%s,%s,%.10f,%.10f,%.6f,%.6f,%.6f,%.6f\n",
			domain.FormatDate(rec.Date), rec.Symbol,
			rec.PositionPrev, rec.DailyReturn,
			rec.GrossPnL, rec.CostsPnL, rec.NetPnL, rec.Equity))
	}
	return sb.String()
}

func renderAttributionCSV(records []domain.AttributionRecord) string {
	var sb strings.Builder
	sb.WriteString("date,symbol,pnl_total,carry_roll_pnl,spot_curve_move_pnl,costs_pnl,convexity_proxy_pnl,residual_pnl\n")

	for _, rec := range records {
		sb.WriteString(fmt.Sprintf("%s,%s,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f\n",
			domain.FormatDate(rec.Date), rec.Symbol,
			rec.PnLTotal, rec.CarryRollPnL, rec.SpotCurveMovePnL,
			rec.CostsPnL, rec.ConvexityProxyPnL, rec.ResidualPnL))
	}
	return sb.String()
}

func renderRollLogCSV(events []domain.RollEvent) string {
	var sb strings.Builder
	sb.WriteString("date,root_symbol,from_contract,to_contract,reason\n")

	for _, e := range events {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s\n",
			domain.FormatDate(e.Date), e.RootSymbol, e.FromContract, e.ToContract, e.Reason))
	}
	return sb.String()
}

// renderQAReport serializes the alignment, fill and outlier audits.
func renderQAReport(artifacts *Artifacts) (string, error) {
	missing := 0
	for _, f := range artifacts.MissingFlags {
		if f.IsDataMissing {
			missing++
		}
	}

	type outlierRow struct {
		Date   string  `json:"date"`
		Symbol string  `json:"symbol"`
		Field  string  `json:"field"`
		ZScore float64 `json:"zscore"`
	}
	outliers := make([]outlierRow, 0, len(artifacts.Outliers))
	for _, o := range artifacts.Outliers {
		outliers = append(outliers, outlierRow{
			Date:   domain.FormatDate(o.Date),
			Symbol: o.Symbol,
			Field:  o.Field,
			ZScore: o.ZScore,
		})
	}

	report := map[string]any{
		"calendar_rows":      len(artifacts.MissingFlags),
		"missing_bars":       missing,
		"fill_counts":        artifacts.FillCounts,
		"fill_audit_entries": len(artifacts.FillAudit),
		"outliers":           outliers,
		"signal_diagnostics": artifacts.SignalStats,
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal qa report: %w", err)
	}
	return string(data) + "\n", nil
}
