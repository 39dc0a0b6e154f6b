package signals

import (
	"vol-rv-lab/internal/domain"
)

// TermStructureParams parameterizes the slope and curvature builders.
// Zero tenors fall back to the front of the curve (1, 2, 3).
type TermStructureParams struct {
	PriceColumn   string
	SymbolToTenor map[string]int

	SlopeShortTenor int
	SlopeLongTenor  int

	CurvatureFrontTenor int
	CurvatureMidTenor   int
	CurvatureBackTenor  int

	ZScoreWindow int
	LagDays      int
}

func (p *TermStructureParams) defaults() {
	if p.PriceColumn == "" {
		p.PriceColumn = "close"
	}
	if p.SlopeShortTenor == 0 {
		p.SlopeShortTenor = 1
	}
	if p.SlopeLongTenor == 0 {
		p.SlopeLongTenor = 2
	}
	if p.CurvatureFrontTenor == 0 {
		p.CurvatureFrontTenor = 1
	}
	if p.CurvatureMidTenor == 0 {
		p.CurvatureMidTenor = 2
	}
	if p.CurvatureBackTenor == 0 {
		p.CurvatureBackTenor = 3
	}
}

// ComputeSlope emits the term-structure slope (front - back) / back
// and its z-scored variant. Dates missing either tenor are null. When
// no z-score window is configured the z series mirrors the raw one.
func ComputeSlope(bars []domain.Bar, params TermStructureParams) []domain.SignalSeries {
	params.defaults()
	matrix := BuildTenorMatrix(bars, params.PriceColumn, params.SymbolToTenor)

	raw := domain.SignalSeries{Name: EnsureSignalPrefix("term_structure_slope")}
	for _, date := range matrix.Dates {
		point := domain.SignalPoint{Date: date}
		front, okF := matrix.Value(date, params.SlopeShortTenor)
		back, okB := matrix.Value(date, params.SlopeLongTenor)
		if okF && okB && back != 0 {
			v := (front - back) / back
			point.Value = &v
		}
		raw.Points = append(raw.Points, point)
	}

	z := zscore(raw, params.ZScoreWindow)
	z.Name = EnsureSignalPrefix("term_structure_slope_z")

	return []domain.SignalSeries{
		ApplyLag(raw, params.LagDays),
		ApplyLag(z, params.LagDays),
	}
}

// ComputeCurvature emits the 3-point curvature 2*mid - front - back
// and its z-scored variant.
func ComputeCurvature(bars []domain.Bar, params TermStructureParams) []domain.SignalSeries {
	params.defaults()
	matrix := BuildTenorMatrix(bars, params.PriceColumn, params.SymbolToTenor)

	raw := domain.SignalSeries{Name: EnsureSignalPrefix("term_structure_curvature")}
	for _, date := range matrix.Dates {
		point := domain.SignalPoint{Date: date}
		front, okF := matrix.Value(date, params.CurvatureFrontTenor)
		mid, okM := matrix.Value(date, params.CurvatureMidTenor)
		back, okB := matrix.Value(date, params.CurvatureBackTenor)
		if okF && okM && okB {
			v := 2.0*mid - front - back
			point.Value = &v
		}
		raw.Points = append(raw.Points, point)
	}

	z := zscore(raw, params.ZScoreWindow)
	z.Name = EnsureSignalPrefix("term_structure_curvature_z")

	return []domain.SignalSeries{
		ApplyLag(raw, params.LagDays),
		ApplyLag(z, params.LagDays),
	}
}
