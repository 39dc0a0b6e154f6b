package risk

import (
	"math"
	"time"

	"vol-rv-lab/internal/domain"
)

// ExposurePoint holds the rolling exposure proxies for one date. The
// proxies are nil until their window fills or when the regressor has
// no dispersion.
type ExposurePoint struct {
	Date            time.Time
	StrategyReturn  float64
	BenchmarkReturn float64
	PositionAbs     float64
	BetaProxy       *float64
	VegaProxy       *float64
	GammaProxy      *float64
}

// ComputeExposures regresses strategy returns on transforms of the
// benchmark return over a rolling window. Beta uses the raw benchmark
// return, vega its absolute value as a vol-level proxy and gamma its
// square. Positions supply the absolute exposure column and must share
// the P&L calendar.
func ComputeExposures(pnl []domain.PnLRecord, positions []domain.PositionRecord, window int) []ExposurePoint {
	if window < 1 {
		window = 1
	}

	strategyRet := StrategyReturns(pnl)
	benchmark := make([]float64, len(pnl))
	absBench := make([]float64, len(pnl))
	sqBench := make([]float64, len(pnl))
	for i, row := range pnl {
		benchmark[i] = row.DailyReturn
		absBench[i] = math.Abs(row.DailyReturn)
		sqBench[i] = row.DailyReturn * row.DailyReturn
	}

	beta := rollingBeta(strategyRet, benchmark, window)
	vega := rollingBeta(strategyRet, absBench, window)
	gamma := rollingBeta(strategyRet, sqBench, window)

	posAbs := make(map[time.Time]float64, len(positions))
	for _, pos := range positions {
		posAbs[pos.Date] = math.Abs(pos.Position)
	}

	out := make([]ExposurePoint, len(pnl))
	for i, row := range pnl {
		out[i] = ExposurePoint{
			Date:            row.Date,
			StrategyReturn:  strategyRet[i],
			BenchmarkReturn: benchmark[i],
			PositionAbs:     posAbs[row.Date],
			BetaProxy:       beta[i],
			VegaProxy:       vega[i],
			GammaProxy:      gamma[i],
		}
	}
	return out
}

// rollingBeta is rolling population covariance of y against x over the
// population variance of x. The window must be fully populated; a
// zero-variance window yields nil.
func rollingBeta(y, x []float64, window int) []*float64 {
	out := make([]*float64, len(y))
	for i := range y {
		if i+1 < window {
			continue
		}
		ySlice := y[i+1-window : i+1]
		xSlice := x[i+1-window : i+1]

		yMean, xMean := mean(ySlice), mean(xSlice)
		cov, varX := 0.0, 0.0
		for j := range xSlice {
			cov += (ySlice[j] - yMean) * (xSlice[j] - xMean)
			varX += (xSlice[j] - xMean) * (xSlice[j] - xMean)
		}
		if varX == 0 {
			continue
		}
		b := cov / varX
		out[i] = &b
	}
	return out
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
