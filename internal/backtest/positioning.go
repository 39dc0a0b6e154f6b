package backtest

import (
	"errors"
	"math"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/stats"
)

// ErrInvalidSignalScale rejects a non-positive sizing divisor.
var ErrInvalidSignalScale = errors.New("signal_scale must be > 0")

// SignalToTargetPosition squashes a raw signal into (-1, 1) via
// tanh(value / scale). The saturation is deliberate: outlier signal
// values cannot produce unbounded sizing.
func SignalToTargetPosition(value, signalScale float64) (float64, error) {
	if signalScale <= 0 {
		return 0, ErrInvalidSignalScale
	}
	return math.Tanh(value / signalScale), nil
}

// ApplyPositionConstraints clips targets to the absolute cap and, when
// volatility targeting is enabled, scales them by target vol over
// realized vol. Realized vol is a rolling population stddev over the
// configured window, shifted one day so today's scaling only sees
// volatility measured strictly before today. Undefined or zero
// realized vol leaves the scale at 1.0; the scale itself is capped at
// the leverage cap. A final clip to the leverage cap applies whether
// or not targeting is enabled.
func ApplyPositionConstraints(targets, returns []float64, rc config.RiskControls) []float64 {
	capAbs := rc.PositionCapAbs
	levCap := rc.LeverageCap
	if levCap == 0 {
		levCap = capAbs
	}

	constrained := make([]float64, len(targets))
	for i, t := range targets {
		constrained[i] = clip(t, -capAbs, capAbs)
	}

	if rc.EnableRiskTarget {
		realizedVol := stats.Shift(stats.RollingStdPop(returns, rc.VolWindow), 1)
		for i := range constrained {
			scale := 1.0
			vol := realizedVol[i]
			if !math.IsNaN(vol) && vol != 0 {
				scale = math.Min(rc.TargetVolatility/vol, levCap)
			}
			constrained[i] = clip(constrained[i]*scale, -capAbs, capAbs)
		}
	}

	for i := range constrained {
		constrained[i] = clip(constrained[i], -levCap, levCap)
	}
	return constrained
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
