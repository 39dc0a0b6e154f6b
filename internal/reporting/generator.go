package reporting

import (
	"context"
	"fmt"
	"time"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/risk"
	"vol-rv-lab/internal/storage"
)

// DefaultTitle is used when the caller does not set one.
const DefaultTitle = "Volatility Relative Value Research Report"

// Generator produces reports from stored run artifacts.
type Generator struct {
	summaryStore     storage.SummaryStore
	pnlStore         storage.PnLStore
	attributionStore storage.AttributionStore
	title            string
	now              func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	summaryStore storage.SummaryStore,
	pnlStore storage.PnLStore,
	attributionStore storage.AttributionStore,
) *Generator {
	return &Generator{
		summaryStore:     summaryStore,
		pnlStore:         pnlStore,
		attributionStore: attributionStore,
		title:            DefaultTitle,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithTitle overrides the report title.
func (g *Generator) WithTitle(title string) *Generator {
	g.title = title
	return g
}

// Generate assembles the report for one run. The run summary must
// exist; an empty P&L series yields a report with an empty risk
// section rather than an error.
func (g *Generator) Generate(ctx context.Context, runID string, riskCfg config.RiskMetrics) (*Report, error) {
	summary, err := g.summaryStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run summary: %w", err)
	}

	pnlRecords, err := g.pnlStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load pnl: %w", err)
	}

	attrRecords, err := g.attributionStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load attribution: %w", err)
	}

	summarySection := SummarySection{
		Metrics:      summary.Metrics,
		Observations: len(pnlRecords),
	}
	if len(pnlRecords) > 0 {
		start := pnlRecords[0].Date
		end := pnlRecords[len(pnlRecords)-1].Date
		summarySection.DateStart = &start
		summarySection.DateEnd = &end
	}

	totals := AttributionTotals{MaxAbsError: summary.Metrics.AttributionMaxAbsError}
	for _, rec := range attrRecords {
		totals.CarryRoll += rec.CarryRollPnL
		totals.SpotCurveMove += rec.SpotCurveMovePnL
		totals.Costs += rec.CostsPnL
		totals.ConvexityProxy += rec.ConvexityProxyPnL
		totals.Residual += rec.ResidualPnL
		totals.TotalPnL += rec.PnLTotal
	}

	riskSection, err := g.buildRiskSection(pnlRecords, riskCfg)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: g.now(),
		RunID:       runID,
		Title:       g.title,
		Summary:     summarySection,
		Attribution: totals,
		Risk:        *riskSection,
	}, nil
}

func (g *Generator) buildRiskSection(pnlRecords []*domain.PnLRecord, riskCfg config.RiskMetrics) (*RiskSection, error) {
	section := &RiskSection{
		VarConfidence:  riskCfg.VarConfidence,
		VarHorizonDays: riskCfg.VarHorizonDays,
	}
	if len(pnlRecords) == 0 {
		return section, nil
	}

	pnl := make([]domain.PnLRecord, len(pnlRecords))
	for i, rec := range pnlRecords {
		pnl[i] = *rec
	}

	returns := risk.StrategyReturns(pnl)
	vc, err := risk.HistoricalVarCvar(returns, riskCfg.VarConfidence, riskCfg.VarHorizonDays)
	if err != nil {
		return nil, fmt.Errorf("var/cvar: %w", err)
	}
	section.VarCvar = &vc

	section.Drawdown = risk.SummarizeDrawdown(risk.ComputeDrawdown(pnl))

	stress, err := risk.ComputeStressReport(pnl, riskCfg.StressWindows)
	if err != nil {
		return nil, fmt.Errorf("stress report: %w", err)
	}
	section.Stress = stress

	return section, nil
}
