package marketdata

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
)

// canonical price/volume columns in mapping order.
var numericColumns = []string{"open", "high", "low", "close", "volume"}

// Standardize transforms a source-native raw table into canonical
// standardized bars. Unparseable numeric cells become nulls; a missing
// configured date or symbol column is a hard error. Output ordering is
// (date, symbol) ascending.
func Standardize(raw *RawTable, src config.SourceConfig, asOf time.Time) ([]domain.Bar, error) {
	if len(raw.Rows) == 0 {
		return nil, fmt.Errorf("source %q: %w", src.Name, ErrEmptySource)
	}

	dateCol := src.DateColumn
	if dateCol == "" {
		dateCol = "date"
	}
	layout := src.DateLayout
	if layout == "" {
		layout = domain.DateLayout
	}
	if _, ok := raw.Column(dateCol); !ok {
		return nil, fmt.Errorf("source %q missing configured date column %q", src.Name, dateCol)
	}
	if src.SymbolColumn != "" {
		if _, ok := raw.Column(src.SymbolColumn); !ok {
			return nil, fmt.Errorf("source %q missing configured symbol column %q", src.Name, src.SymbolColumn)
		}
	} else if src.Symbol == "" {
		return nil, fmt.Errorf("source %q must set symbol_column or symbol", src.Name)
	}

	assetType := src.AssetType
	if assetType == "" {
		assetType = "unknown"
	}
	sourceName := src.Source
	if sourceName == "" {
		sourceName = src.Name
	}

	bars := make([]domain.Bar, 0, len(raw.Rows))
	for i, row := range raw.Rows {
		date, err := time.Parse(layout, raw.Value(row, dateCol))
		if err != nil {
			return nil, fmt.Errorf("source %q row %d: parse date: %w", src.Name, i+1, err)
		}

		bar := domain.Bar{
			Date:      domain.Midnight(date),
			AssetType: assetType,
			Source:    sourceName,
			AsOf:      asOf.UTC(),
		}

		if src.SymbolColumn != "" {
			bar.Symbol = raw.Value(row, src.SymbolColumn)
		} else {
			bar.Symbol = src.Symbol
		}

		for _, col := range numericColumns {
			mapped, ok := src.ColumnMapping[col]
			if !ok || mapped == "" {
				continue
			}
			cell := raw.Value(row, mapped)
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				continue // unparseable numeric cells standardize to null
			}
			setBarField(&bar, col, v)
		}

		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		if !bars[i].Date.Equal(bars[j].Date) {
			return bars[i].Date.Before(bars[j].Date)
		}
		return bars[i].Symbol < bars[j].Symbol
	})

	return bars, nil
}

func setBarField(b *domain.Bar, name string, v float64) {
	switch name {
	case "open":
		b.Open = &v
	case "high":
		b.High = &v
	case "low":
		b.Low = &v
	case "close":
		b.Close = &v
	case "volume":
		b.Volume = &v
	}
}
