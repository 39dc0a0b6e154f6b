package signals

import (
	"math"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/stats"
)

// VRPParams parameterizes the variance-risk-premium proxy builder.
type VRPParams struct {
	IVSymbol    string
	RVSymbol    string
	PriceColumn string

	RVWindow           int
	TradingDaysPerYear int
	IVScale            float64
	LagDays            int
}

func (p *VRPParams) defaults() {
	if p.IVSymbol == "" {
		p.IVSymbol = "VIXY"
	}
	if p.RVSymbol == "" {
		p.RVSymbol = "SPY"
	}
	if p.PriceColumn == "" {
		p.PriceColumn = "close"
	}
	if p.RVWindow == 0 {
		p.RVWindow = 20
	}
	if p.TradingDaysPerYear == 0 {
		p.TradingDaysPerYear = 252
	}
	if p.IVScale == 0 {
		p.IVScale = 100.0
	}
}

// ComputeVRPProxy emits the implied-vol proxy, the realized-vol proxy
// and their difference. Implied vol is the IV symbol's price divided
// by the configured scale. Realized vol is the rolling population
// stddev of the RV symbol's returns, annualized and shifted one day so
// the signal never contains the same-day return it would trade on.
func ComputeVRPProxy(bars []domain.Bar, params VRPParams) []domain.SignalSeries {
	params.defaults()
	dates := uniqueDates(bars)

	ivByDate := make(map[int]float64, len(dates))
	rvPrice := make(map[int]float64, len(dates))
	index := make(map[int64]int, len(dates))
	for i, d := range dates {
		index[d.Unix()] = i
	}
	for _, bar := range bars {
		price := barField(bar, params.PriceColumn)
		if price == nil {
			continue
		}
		i := index[bar.Date.Unix()]
		switch bar.Symbol {
		case params.IVSymbol:
			ivByDate[i] = *price
		case params.RVSymbol:
			rvPrice[i] = *price
		}
	}

	// Daily returns of the RV underlier over the full calendar, NaN
	// when either endpoint price is missing.
	returns := make([]float64, len(dates))
	for i := range dates {
		returns[i] = math.NaN()
		if i == 0 {
			continue
		}
		cur, okC := rvPrice[i]
		prev, okP := rvPrice[i-1]
		if okC && okP && prev != 0 {
			returns[i] = cur/prev - 1
		}
	}

	annualize := math.Sqrt(float64(params.TradingDaysPerYear))
	realized := stats.Shift(stats.RollingStdPop(returns, params.RVWindow), 1)

	iv := domain.SignalSeries{Name: EnsureSignalPrefix("iv_proxy_ann")}
	rv := domain.SignalSeries{Name: EnsureSignalPrefix("rv_proxy_ann")}
	vrp := domain.SignalSeries{Name: EnsureSignalPrefix("vrp_proxy")}
	for i, date := range dates {
		ivPoint := domain.SignalPoint{Date: date}
		rvPoint := domain.SignalPoint{Date: date}
		vrpPoint := domain.SignalPoint{Date: date}

		if raw, ok := ivByDate[i]; ok {
			v := raw / params.IVScale
			ivPoint.Value = &v
		}
		if !math.IsNaN(realized[i]) {
			v := realized[i] * annualize
			rvPoint.Value = &v
		}
		if ivPoint.Value != nil && rvPoint.Value != nil {
			v := *ivPoint.Value - *rvPoint.Value
			vrpPoint.Value = &v
		}

		iv.Points = append(iv.Points, ivPoint)
		rv.Points = append(rv.Points, rvPoint)
		vrp.Points = append(vrp.Points, vrpPoint)
	}

	return []domain.SignalSeries{
		ApplyLag(iv, params.LagDays),
		ApplyLag(rv, params.LagDays),
		ApplyLag(vrp, params.LagDays),
	}
}
