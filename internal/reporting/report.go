package reporting

import (
	"time"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/risk"
)

// Report is the research report assembled from one run's stored
// artifacts: the summary metrics, attribution totals and a risk
// section.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	Title       string

	Summary     SummarySection
	Attribution AttributionTotals
	Risk        RiskSection
}

// SummarySection carries the run's scalar metrics plus the observation
// span of the P&L series.
type SummarySection struct {
	Metrics      domain.RunMetrics
	Observations int
	DateStart    *time.Time
	DateEnd      *time.Time
}

// AttributionTotals sums each attribution component over the run. The
// components must add up to TotalPnL within the reconciliation
// tolerance; MaxAbsError is taken from the run summary.
type AttributionTotals struct {
	CarryRoll      float64
	SpotCurveMove  float64
	Costs          float64
	ConvexityProxy float64
	Residual       float64
	TotalPnL       float64
	MaxAbsError    float64
}

// RiskSection holds the risk metrics recomputed from the stored P&L.
type RiskSection struct {
	VarConfidence  float64
	VarHorizonDays int
	VarCvar        *risk.VarCvar
	Drawdown       risk.DrawdownSummary
	Stress         []risk.StressRow
}
