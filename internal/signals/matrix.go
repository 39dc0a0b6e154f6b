package signals

import (
	"time"

	"vol-rv-lab/internal/domain"
)

// TenorMatrix is a date-by-tenor price surface built from long-format
// bars. Duplicate (date, tenor) observations keep the last value.
type TenorMatrix struct {
	Dates  []time.Time
	values map[time.Time]map[int]float64
}

// BuildTenorMatrix pivots bars into a tenor surface using the
// symbol-to-tenor mapping. Unmapped symbols and null prices are
// skipped; the date axis always covers every input date.
func BuildTenorMatrix(bars []domain.Bar, priceColumn string, symbolToTenor map[string]int) *TenorMatrix {
	m := &TenorMatrix{
		Dates:  uniqueDates(bars),
		values: make(map[time.Time]map[int]float64),
	}
	if len(symbolToTenor) == 0 {
		return m
	}

	for _, bar := range bars {
		tenor, ok := symbolToTenor[bar.Symbol]
		if !ok {
			continue
		}
		price := barField(bar, priceColumn)
		if price == nil {
			continue
		}
		row, ok := m.values[bar.Date]
		if !ok {
			row = make(map[int]float64)
			m.values[bar.Date] = row
		}
		row[tenor] = *price
	}
	return m
}

// Value reads one cell of the surface.
func (m *TenorMatrix) Value(date time.Time, tenor int) (float64, bool) {
	row, ok := m.values[date]
	if !ok {
		return 0, false
	}
	v, ok := row[tenor]
	return v, ok
}
