package marketdata

import (
	"fmt"
	"sort"
	"time"

	"vol-rv-lab/internal/domain"
)

// BuildMarketSeries extracts the dense market series for one primary
// instrument from standardized bars: unique ascending dates, last
// observation winning on duplicates, daily returns as simple percent
// change with the first row defined as 0. Rows without a usable price
// are skipped. A primary symbol absent from the data is a hard error.
func BuildMarketSeries(bars []domain.Bar, symbol, priceColumn string) ([]domain.MarketObservation, error) {
	byDate := make(map[time.Time]float64)
	for i := range bars {
		if bars[i].Symbol != symbol {
			continue
		}
		price, ok := priceField(&bars[i], priceColumn)
		if !ok {
			return nil, fmt.Errorf("unknown price column %q", priceColumn)
		}
		if price == nil {
			continue
		}
		byDate[bars[i].Date] = *price
	}

	if len(byDate) == 0 {
		return nil, fmt.Errorf("primary symbol %q not found in standardized data", symbol)
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	series := make([]domain.MarketObservation, len(dates))
	for i, d := range dates {
		obs := domain.MarketObservation{Date: d, Symbol: symbol, Price: byDate[d]}
		if i > 0 && series[i-1].Price != 0 {
			obs.DailyReturn = obs.Price/series[i-1].Price - 1.0
		}
		series[i] = obs
	}
	return series, nil
}

func priceField(b *domain.Bar, name string) (*float64, bool) {
	switch name {
	case "open":
		return b.Open, true
	case "high":
		return b.High, true
	case "low":
		return b.Low, true
	case "close":
		return b.Close, true
	default:
		return nil, false
	}
}
