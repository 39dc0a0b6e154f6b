package signals

import (
	"vol-rv-lab/internal/domain"
)

// CarryParams parameterizes the carry/roll-down proxy builder.
type CarryParams struct {
	PriceColumn   string
	SymbolToTenor map[string]int

	FrontTenor         int
	NextTenor          int
	TenorGapMonths     float64
	TradingDaysPerYear int
	LagDays            int
}

func (p *CarryParams) defaults() {
	if p.PriceColumn == "" {
		p.PriceColumn = "close"
	}
	if p.FrontTenor == 0 {
		p.FrontTenor = 1
	}
	if p.NextTenor == 0 {
		p.NextTenor = 2
	}
	if p.TenorGapMonths == 0 {
		p.TenorGapMonths = 1.0
	}
	if p.TradingDaysPerYear == 0 {
		p.TradingDaysPerYear = 252
	}
}

// ComputeCarryRollDown emits the annualized carry proxy and the raw
// roll-down spread, both as fractions of the front price. The carry
// annualizer assumes 21 trading days per tenor month, floored at one
// day so a tiny configured gap cannot blow the signal up.
func ComputeCarryRollDown(bars []domain.Bar, params CarryParams) []domain.SignalSeries {
	params.defaults()
	matrix := BuildTenorMatrix(bars, params.PriceColumn, params.SymbolToTenor)

	annualizer := float64(params.TradingDaysPerYear) / max(params.TenorGapMonths*21.0, 1.0)

	carry := domain.SignalSeries{Name: EnsureSignalPrefix("carry_roll_down")}
	rollDown := domain.SignalSeries{Name: EnsureSignalPrefix("roll_down_proxy")}
	for _, date := range matrix.Dates {
		carryPoint := domain.SignalPoint{Date: date}
		rollPoint := domain.SignalPoint{Date: date}

		front, okF := matrix.Value(date, params.FrontTenor)
		next, okN := matrix.Value(date, params.NextTenor)
		if okF && okN && front != 0 {
			spread := (next - front) / front
			annualized := spread * annualizer
			carryPoint.Value = &annualized
			rollPoint.Value = &spread
		}

		carry.Points = append(carry.Points, carryPoint)
		rollDown.Points = append(rollDown.Points, rollPoint)
	}

	return []domain.SignalSeries{
		ApplyLag(carry, params.LagDays),
		ApplyLag(rollDown, params.LagDays),
	}
}
