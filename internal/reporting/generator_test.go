package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/storage"
	"vol-rv-lab/internal/storage/memory"
)

func fptr(v float64) *float64 { return &v }

func reportDates(n int) []time.Time {
	dates := make([]time.Time, 0, n)
	d := domain.NewDate(2024, time.January, 8)
	for len(dates) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return dates
}

func seedRun(t *testing.T, runID string) (*memory.SummaryStore, *memory.PnLStore, *memory.AttributionStore) {
	t.Helper()
	ctx := context.Background()

	summaryStore := memory.NewSummaryStore()
	pnlStore := memory.NewPnLStore()
	attrStore := memory.NewAttributionStore()

	dates := reportDates(4)
	net := []float64{500, -200, 300, 100}
	equity := 1_000_000.0

	var pnl []*domain.PnLRecord
	var attr []*domain.AttributionRecord
	for i, d := range dates {
		equity += net[i]
		pnl = append(pnl, &domain.PnLRecord{
			Date:        d,
			Symbol:      "VX",
			DailyReturn: 0.001,
			GrossPnL:    net[i] + 50,
			CostsPnL:    -50,
			NetPnL:      net[i],
			Equity:      equity,
		})
		attr = append(attr, &domain.AttributionRecord{
			Date:             d,
			Symbol:           "VX",
			PnLTotal:         net[i],
			CarryRollPnL:     100,
			SpotCurveMovePnL: net[i] - 50,
			CostsPnL:         -50,
		})
	}
	if err := pnlStore.InsertBulk(ctx, runID, pnl); err != nil {
		t.Fatalf("seed pnl: %v", err)
	}
	if err := attrStore.InsertBulk(ctx, runID, attr); err != nil {
		t.Fatalf("seed attribution: %v", err)
	}

	err := summaryStore.Insert(ctx, &domain.RunSummary{
		RunID:       runID,
		GeneratedAt: time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC),
		ConfigSnapshot: map[string]any{
			"primary_symbol": "VX",
		},
		Metrics: domain.RunMetrics{
			InitialCapital:         1_000_000,
			TotalNetPnL:            700,
			FinalEquity:            1_000_700,
			TotalCost:              200,
			Turnover:               1.8,
			HitRate:                fptr(0.75),
			Sharpe:                 fptr(1.3),
			RegularTradeCount:      3,
			RollTradeCount:         1,
			AttributionMaxAbsError: 4.2e-12,
		},
	})
	if err != nil {
		t.Fatalf("seed summary: %v", err)
	}

	return summaryStore, pnlStore, attrStore
}

func testRiskConfig() config.RiskMetrics {
	return config.RiskMetrics{
		VarConfidence:  0.95,
		VarHorizonDays: 1,
		ExposureWindow: 2,
		StressWindows: []config.StressWindow{
			{Name: "first_week", Start: "2024-01-08", End: "2024-01-12"},
		},
	}
}

func TestGenerator_Generate(t *testing.T) {
	summaryStore, pnlStore, attrStore := seedRun(t, "run-1")

	fixed := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	gen := NewGenerator(summaryStore, pnlStore, attrStore).
		WithClock(func() time.Time { return fixed })

	report, err := gen.Generate(context.Background(), "run-1", testRiskConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !report.GeneratedAt.Equal(fixed) {
		t.Errorf("GeneratedAt = %v, want %v", report.GeneratedAt, fixed)
	}
	if report.RunID != "run-1" {
		t.Errorf("RunID = %q", report.RunID)
	}
	if report.Summary.Observations != 4 {
		t.Errorf("Observations = %d, want 4", report.Summary.Observations)
	}
	if report.Summary.DateStart == nil || !report.Summary.DateStart.Equal(domain.NewDate(2024, time.January, 8)) {
		t.Errorf("DateStart = %v", report.Summary.DateStart)
	}

	// Attribution totals over the 4 seeded rows.
	if got := report.Attribution.CarryRoll; got != 400 {
		t.Errorf("CarryRoll total = %v, want 400", got)
	}
	if got := report.Attribution.Costs; got != -200 {
		t.Errorf("Costs total = %v, want -200", got)
	}
	if got := report.Attribution.TotalPnL; got != 700 {
		t.Errorf("TotalPnL = %v, want 700", got)
	}

	if report.Risk.VarCvar == nil {
		t.Fatal("VarCvar is nil")
	}
	if report.Risk.VarCvar.CVaR < report.Risk.VarCvar.VaR {
		t.Errorf("CVaR %v < VaR %v", report.Risk.VarCvar.CVaR, report.Risk.VarCvar.VaR)
	}
	if len(report.Risk.Stress) != 1 {
		t.Fatalf("Stress rows = %d, want 1", len(report.Risk.Stress))
	}
	if report.Risk.Stress[0].Observations != 4 {
		t.Errorf("stress observations = %d, want 4", report.Risk.Stress[0].Observations)
	}
	if report.Risk.Stress[0].TotalPnL != 700 {
		t.Errorf("stress total pnl = %v, want 700", report.Risk.Stress[0].TotalPnL)
	}
}

func TestGenerator_MissingRun(t *testing.T) {
	summaryStore, pnlStore, attrStore := seedRun(t, "run-1")
	gen := NewGenerator(summaryStore, pnlStore, attrStore)

	_, err := gen.Generate(context.Background(), "missing", testRiskConfig())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRenderMarkdown(t *testing.T) {
	summaryStore, pnlStore, attrStore := seedRun(t, "run-1")
	gen := NewGenerator(summaryStore, pnlStore, attrStore).
		WithClock(func() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC) })

	report, err := gen.Generate(context.Background(), "run-1", testRiskConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	md := RenderMarkdown(report)

	for _, want := range []string{
		"# " + DefaultTitle,
		"Run: run-1",
		"## Results",
		"| Total Net PnL | 700.00 |",
		"| Hit Rate | 0.7500 |",
		"## PnL Attribution",
		"| Carry / Roll | 400.00 |",
		"## Risk Summary",
		"VaR(95%, 1d):",
		"| first_week | 2024-01-08 | 2024-01-12 | 4 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_NilMetrics(t *testing.T) {
	report := &Report{
		Title:       DefaultTitle,
		RunID:       "empty-run",
		GeneratedAt: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	}

	md := RenderMarkdown(report)
	if !strings.Contains(md, "| Hit Rate | n/a |") {
		t.Error("nil hit rate should render as n/a")
	}
	if !strings.Contains(md, "VaR/CVaR not computed") {
		t.Error("missing empty-risk note")
	}
}

func TestRenderSummaryCSV(t *testing.T) {
	summaryStore, pnlStore, attrStore := seedRun(t, "run-1")
	gen := NewGenerator(summaryStore, pnlStore, attrStore)

	report, err := gen.Generate(context.Background(), "run-1", testRiskConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	csv := RenderSummaryCSV(report)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "run_id,observations,") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "run-1,4,") {
		t.Errorf("unexpected row: %s", lines[1])
	}

	// Nil metrics leave the cell empty.
	report.Summary.Metrics.HitRate = nil
	csv = RenderSummaryCSV(report)
	if !strings.Contains(csv, ",,") {
		t.Error("nil hit rate should render as an empty cell")
	}
}

func TestRenderStressCSV(t *testing.T) {
	summaryStore, pnlStore, attrStore := seedRun(t, "run-1")
	gen := NewGenerator(summaryStore, pnlStore, attrStore)

	report, err := gen.Generate(context.Background(), "run-1", testRiskConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	csv := RenderStressCSV(report)
	if !strings.Contains(csv, "first_week,2024-01-08,2024-01-12,4,700.000000,") {
		t.Errorf("unexpected stress csv: %s", csv)
	}
}
