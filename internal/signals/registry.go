package signals

import (
	"fmt"
	"sort"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
)

// Builder computes one signal family from standardized bars.
type Builder func(bars []domain.Bar, params config.SignalParams) ([]domain.SignalSeries, error)

// Registry maps signal names to builders.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry returns a registry with every built-in signal family.
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]Builder)}
	r.Register("term_structure_slope", buildSlope)
	r.Register("term_structure_curvature", buildCurvature)
	r.Register("carry_roll_down", buildCarryRollDown)
	r.Register("vrp_proxy", buildVRPProxy)
	return r
}

// Register adds or replaces a builder.
func (r *Registry) Register(name string, builder Builder) {
	r.builders[name] = builder
}

// Names lists the registered builders in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build runs the enabled builders in the order configured and returns
// the merged series set plus per-series diagnostics. An unknown signal
// name is a hard error: a typo must not silently drop a signal.
func (r *Registry) Build(bars []domain.Bar, cfg config.SignalsConfig) ([]domain.SignalSeries, map[string]Stats, error) {
	var out []domain.SignalSeries
	diagnostics := make(map[string]Stats)

	for _, name := range cfg.Enabled {
		builder, ok := r.builders[name]
		if !ok {
			return nil, nil, fmt.Errorf("unknown signal %q (registered: %v)", name, r.Names())
		}

		series, err := builder(bars, cfg.Params[name])
		if err != nil {
			return nil, nil, fmt.Errorf("build signal %q: %w", name, err)
		}
		for _, s := range series {
			out = append(out, s)
			diagnostics[s.Name] = Summarize(s)
		}
	}
	return out, diagnostics, nil
}

func buildSlope(bars []domain.Bar, params config.SignalParams) ([]domain.SignalSeries, error) {
	p, err := termStructureParams(params)
	if err != nil {
		return nil, err
	}
	return ComputeSlope(bars, p), nil
}

func buildCurvature(bars []domain.Bar, params config.SignalParams) ([]domain.SignalSeries, error) {
	p, err := termStructureParams(params)
	if err != nil {
		return nil, err
	}
	return ComputeCurvature(bars, p), nil
}

func buildCarryRollDown(bars []domain.Bar, params config.SignalParams) ([]domain.SignalSeries, error) {
	tenors, err := paramTenorMap(params, "symbol_to_tenor")
	if err != nil {
		return nil, err
	}
	p := CarryParams{
		PriceColumn:        paramString(params, "price_column"),
		SymbolToTenor:      tenors,
		FrontTenor:         paramInt(params, "front_tenor"),
		NextTenor:          paramInt(params, "next_tenor"),
		TenorGapMonths:     paramFloat(params, "tenor_gap_months"),
		TradingDaysPerYear: paramInt(params, "trading_days_per_year"),
		LagDays:            paramInt(params, "lag_days"),
	}
	return ComputeCarryRollDown(bars, p), nil
}

func buildVRPProxy(bars []domain.Bar, params config.SignalParams) ([]domain.SignalSeries, error) {
	p := VRPParams{
		IVSymbol:           paramString(params, "iv_symbol"),
		RVSymbol:           paramString(params, "rv_symbol"),
		PriceColumn:        paramString(params, "price_column"),
		RVWindow:           paramInt(params, "rv_window"),
		TradingDaysPerYear: paramInt(params, "trading_days_per_year"),
		IVScale:            paramFloat(params, "iv_scale"),
		LagDays:            paramInt(params, "lag_days"),
	}
	return ComputeVRPProxy(bars, p), nil
}

func termStructureParams(params config.SignalParams) (TermStructureParams, error) {
	tenors, err := paramTenorMap(params, "symbol_to_tenor")
	if err != nil {
		return TermStructureParams{}, err
	}
	return TermStructureParams{
		PriceColumn:         paramString(params, "price_column"),
		SymbolToTenor:       tenors,
		SlopeShortTenor:     paramInt(params, "slope_short_tenor"),
		SlopeLongTenor:      paramInt(params, "slope_long_tenor"),
		CurvatureFrontTenor: paramInt(params, "curvature_front_tenor"),
		CurvatureMidTenor:   paramInt(params, "curvature_mid_tenor"),
		CurvatureBackTenor:  paramInt(params, "curvature_back_tenor"),
		ZScoreWindow:        paramInt(params, "zscore_window"),
		LagDays:             paramInt(params, "lag_days"),
	}, nil
}

// Param accessors tolerate the loose typing YAML decoding produces.

func paramString(params config.SignalParams, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func paramInt(params config.SignalParams, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func paramFloat(params config.SignalParams, key string) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func paramTenorMap(params config.SignalParams, key string) (map[string]int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, nil
	}
	mapped, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a mapping of symbol to tenor", key)
	}

	out := make(map[string]int, len(mapped))
	for symbol, tenor := range mapped {
		switch v := tenor.(type) {
		case int:
			out[symbol] = v
		case int64:
			out[symbol] = int(v)
		case float64:
			out[symbol] = int(v)
		default:
			return nil, fmt.Errorf("%s[%s]: tenor must be numeric, got %T", key, symbol, tenor)
		}
	}
	return out, nil
}
