// Package risk computes downstream risk metrics from backtest
// artifacts: historical VaR/CVaR, drawdown analytics, rolling exposure
// proxies and stress-window reports. All loss metrics use the
// loss-positive convention.
package risk

import (
	"errors"
	"math"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/stats"
)

// Input validation errors.
var (
	ErrConfidence = errors.New("confidence must be strictly between 0 and 1")
	ErrHorizon    = errors.New("horizon_days must be >= 1")
)

// VarCvar reports value-at-risk and conditional value-at-risk as
// positive loss magnitudes.
type VarCvar struct {
	VaR  float64 `json:"var"`
	CVaR float64 `json:"cvar"`
}

// HistoricalVarCvar computes empirical VaR/CVaR of a return series.
// Returns are arithmetic gains; losses are their negation. A horizon
// above one day aggregates returns with fully-populated rolling sums
// before taking quantiles. NaN observations are dropped; an empty
// series reports zero risk.
func HistoricalVarCvar(returns []float64, confidence float64, horizonDays int) (VarCvar, error) {
	if confidence <= 0 || confidence >= 1 {
		return VarCvar{}, ErrConfidence
	}
	if horizonDays < 1 {
		return VarCvar{}, ErrHorizon
	}

	var clean []float64
	for _, r := range returns {
		if !math.IsNaN(r) {
			clean = append(clean, r)
		}
	}
	if len(clean) == 0 {
		return VarCvar{}, nil
	}

	agg := clean
	if horizonDays > 1 {
		if len(clean) < horizonDays {
			return VarCvar{}, nil
		}
		agg = make([]float64, 0, len(clean)-horizonDays+1)
		sum := 0.0
		for i, r := range clean {
			sum += r
			if i >= horizonDays {
				sum -= clean[i-horizonDays]
			}
			if i >= horizonDays-1 {
				agg = append(agg, sum)
			}
		}
	}

	losses := make([]float64, len(agg))
	for i, r := range agg {
		losses[i] = -r
	}

	varLevel := stats.Quantile(losses, confidence)
	var tail []float64
	for _, loss := range losses {
		if loss >= varLevel {
			tail = append(tail, loss)
		}
	}

	cvarLevel := varLevel
	if len(tail) > 0 {
		cvarLevel = stats.Mean(tail)
	}
	return VarCvar{VaR: varLevel, CVaR: cvarLevel}, nil
}

// StrategyReturns derives daily arithmetic strategy returns from the
// P&L table: net P&L over the prior day's equity. The first day and
// any day after zero equity report zero.
func StrategyReturns(pnl []domain.PnLRecord) []float64 {
	returns := make([]float64, len(pnl))
	for i, row := range pnl {
		if i == 0 {
			continue
		}
		if prev := pnl[i-1].Equity; prev != 0 {
			returns[i] = row.NetPnL / prev
		}
	}
	return returns
}
