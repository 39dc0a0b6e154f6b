// Package stats provides the shared float helpers used by the signal,
// risk and backtest stages. All functions are pure; missing values are
// represented as NaN in windowed outputs.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDevPop returns the population standard deviation (n denominator),
// 0 for fewer than one observation.
func StdDevPop(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n))
}

// StdDevSample returns the sample standard deviation (n-1 denominator),
// 0 for fewer than 2 observations.
func StdDevSample(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// Quantile returns the q-quantile (0..1) of values using linear
// interpolation between order statistics. values need not be sorted.
func Quantile(values []float64, q float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n == 1 {
		return sorted[0]
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}

	idx := q * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// RollingStdPop computes a rolling population standard deviation with
// min-periods equal to the window: positions with fewer than window
// observations are NaN. NaN inputs propagate through their windows.
func RollingStdPop(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 1 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		win := values[i-window+1 : i+1]
		valid := true
		for _, v := range win {
			if math.IsNaN(v) {
				valid = false
				break
			}
		}
		if valid {
			out[i] = StdDevPop(win)
		}
	}
	return out
}

// RollingMean computes a rolling mean with min-periods equal to the
// window; positions with insufficient history are NaN.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 1 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		win := values[i-window+1 : i+1]
		valid := true
		for _, v := range win {
			if math.IsNaN(v) {
				valid = false
				break
			}
		}
		if valid {
			out[i] = Mean(win)
		}
	}
	return out
}

// Shift moves values forward by n positions, filling the head with NaN.
// Shifting by zero or a negative n returns a copy unchanged.
func Shift(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	if n <= 0 {
		copy(out, values)
		return out
	}
	for i := range out {
		if i < n {
			out[i] = math.NaN()
		} else {
			out[i] = values[i-n]
		}
	}
	return out
}
