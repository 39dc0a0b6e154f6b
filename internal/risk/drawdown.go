package risk

import (
	"time"

	"vol-rv-lab/internal/domain"
)

// DrawdownPoint is one day of the drawdown series.
type DrawdownPoint struct {
	Date       time.Time
	Equity     float64
	RunningMax float64
	Drawdown   float64
	Duration   int
}

// DrawdownSummary condenses the drawdown series. RecoveryPeriods is
// nil when equity never regains its high-water mark after the trough.
type DrawdownSummary struct {
	MaxDrawdown     float64 `json:"max_drawdown"`
	MaxDuration     int     `json:"max_drawdown_duration"`
	RecoveryPeriods *int    `json:"recovery_periods"`
}

// ComputeDrawdown builds the drawdown series off the equity curve:
// fractional distance below the running maximum, plus a consecutive
// days-underwater counter that resets at each new high.
func ComputeDrawdown(pnl []domain.PnLRecord) []DrawdownPoint {
	points := make([]DrawdownPoint, len(pnl))
	runningMax := 0.0
	duration := 0
	for i, row := range pnl {
		if i == 0 || row.Equity > runningMax {
			runningMax = row.Equity
		}

		dd := 0.0
		if runningMax != 0 {
			dd = row.Equity/runningMax - 1.0
		}
		if dd < 0 {
			duration++
		} else {
			duration = 0
		}

		points[i] = DrawdownPoint{
			Date:       row.Date,
			Equity:     row.Equity,
			RunningMax: runningMax,
			Drawdown:   dd,
			Duration:   duration,
		}
	}
	return points
}

// SummarizeDrawdown reports the deepest drawdown, the longest
// underwater stretch and the periods from trough back to the mark.
func SummarizeDrawdown(points []DrawdownPoint) DrawdownSummary {
	if len(points) == 0 {
		return DrawdownSummary{}
	}

	summary := DrawdownSummary{}
	troughIdx := 0
	for i, p := range points {
		if p.Drawdown < summary.MaxDrawdown {
			summary.MaxDrawdown = p.Drawdown
			troughIdx = i
		}
		if p.Duration > summary.MaxDuration {
			summary.MaxDuration = p.Duration
		}
	}

	for i := troughIdx; i < len(points); i++ {
		if points[i].Drawdown >= 0 {
			periods := i - troughIdx
			summary.RecoveryPeriods = &periods
			break
		}
	}
	return summary
}
