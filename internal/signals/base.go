// Package signals builds research signals from standardized daily
// bars: term-structure slope and curvature, carry/roll-down proxies
// and a variance-risk-premium proxy. Every builder emits series on
// the full date calendar of its input and shares one anti-leakage lag
// helper. Builders are registered by name and driven from config.
package signals

import (
	"math"
	"sort"
	"strings"
	"time"

	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/stats"
)

// SignalPrefix namespaces every emitted series name.
const SignalPrefix = "signal_"

// EnsureSignalPrefix prepends the signal namespace when absent.
func EnsureSignalPrefix(name string) string {
	if strings.HasPrefix(name, SignalPrefix) {
		return name
	}
	return SignalPrefix + name
}

// ApplyLag shifts series values forward by lagDays along the date
// order, nulling the head. The shift only ever moves observations to
// later dates. A non-positive lag returns the series unchanged.
func ApplyLag(series domain.SignalSeries, lagDays int) domain.SignalSeries {
	if lagDays <= 0 {
		return series
	}

	shifted := make([]domain.SignalPoint, len(series.Points))
	for i, p := range series.Points {
		shifted[i] = domain.SignalPoint{Date: p.Date}
		if i >= lagDays {
			shifted[i].Value = series.Points[i-lagDays].Value
		}
	}
	return domain.SignalSeries{Name: series.Name, Points: shifted}
}

// Stats summarizes one signal series for diagnostics.
type Stats struct {
	Mean            *float64 `json:"mean"`
	Std             *float64 `json:"std"`
	Min             *float64 `json:"min"`
	Max             *float64 `json:"max"`
	MissingFraction float64  `json:"missing"`
}

// Summarize computes per-series mean/std/min/max and the missing
// fraction. An all-null series reports nil moments.
func Summarize(series domain.SignalSeries) Stats {
	var values []float64
	for _, p := range series.Points {
		if p.Value != nil {
			values = append(values, *p.Value)
		}
	}

	total := len(series.Points)
	if total == 0 {
		return Stats{MissingFraction: 0}
	}

	out := Stats{MissingFraction: float64(total-len(values)) / float64(total)}
	if len(values) == 0 {
		return out
	}

	mean := stats.Mean(values)
	std := stats.StdDevPop(values)
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	out.Mean, out.Std, out.Min, out.Max = &mean, &std, &min, &max
	return out
}

// uniqueDates returns the sorted distinct dates across all bars.
func uniqueDates(bars []domain.Bar) []time.Time {
	seen := make(map[time.Time]struct{}, len(bars))
	var dates []time.Time
	for _, bar := range bars {
		if _, ok := seen[bar.Date]; !ok {
			seen[bar.Date] = struct{}{}
			dates = append(dates, bar.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// barField reads a named numeric field off a bar; nil when null or
// the name is not a bar column.
func barField(bar domain.Bar, column string) *float64 {
	switch column {
	case "open":
		return bar.Open
	case "high":
		return bar.High
	case "low":
		return bar.Low
	case "close":
		return bar.Close
	case "volume":
		return bar.Volume
	}
	return nil
}

// zscore replaces a series with its rolling z-score when window >= 2.
// The window must be fully populated; a zero-dispersion window yields
// a null. Smaller windows leave the series untouched.
func zscore(series domain.SignalSeries, window int) domain.SignalSeries {
	if window < 2 {
		return series
	}

	values := make([]float64, len(series.Points))
	for i, p := range series.Points {
		if p.Value != nil {
			values[i] = *p.Value
		} else {
			values[i] = math.NaN()
		}
	}

	mean := stats.RollingMean(values, window)
	std := stats.RollingStdPop(values, window)

	out := make([]domain.SignalPoint, len(series.Points))
	for i, p := range series.Points {
		out[i] = domain.SignalPoint{Date: p.Date}
		if !math.IsNaN(values[i]) && !math.IsNaN(mean[i]) && !math.IsNaN(std[i]) && std[i] != 0 {
			z := (values[i] - mean[i]) / std[i]
			out[i].Value = &z
		}
	}
	return domain.SignalSeries{Name: series.Name, Points: out}
}
