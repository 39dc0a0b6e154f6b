package calendar

import (
	"fmt"
	"time"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
)

// FillAudit is one row of the missing-data audit report.
type FillAudit struct {
	Date              time.Time
	Symbol            string
	Field             string
	MissingBeforeFill bool
	MissingAfterFill  bool
	Filled            bool
}

// barField returns a pointer to the named nullable field of a bar.
func barField(b *domain.Bar, name string) (**float64, bool) {
	switch name {
	case "open":
		return &b.Open, true
	case "high":
		return &b.High, true
	case "low":
		return &b.Low, true
	case "close":
		return &b.Close, true
	case "volume":
		return &b.Volume, true
	default:
		return nil, false
	}
}

// ApplyFillRules fills configured fields per symbol in date order and
// returns the filled bars, a row-level audit report and per-field fill
// counts. Bars must already be aligned (grouped by symbol, dates
// ascending within each symbol). The input slice is not mutated.
func ApplyFillRules(bars []domain.Bar, cfg config.FillConfig) ([]domain.Bar, []FillAudit, map[string]int, error) {
	fields := cfg.Fields
	if len(fields) == 0 {
		fields = []string{"open", "high", "low", "close"}
	}
	if cfg.FillVolume && !contains(fields, "volume") {
		fields = append(append([]string{}, fields...), "volume")
	}

	method := cfg.Method
	if method == "" {
		method = "ffill"
	}
	if method != "ffill" && method != "bfill" {
		return nil, nil, nil, fmt.Errorf("unsupported fill method: %s", method)
	}

	filled := make([]domain.Bar, len(bars))
	copy(filled, bars)

	var audit []FillAudit
	counts := make(map[string]int)

	for _, field := range fields {
		missingBefore := make([]bool, len(filled))
		for i := range filled {
			ptr, ok := barField(&filled[i], field)
			if !ok {
				return nil, nil, nil, fmt.Errorf("unknown fill field: %s", field)
			}
			missingBefore[i] = *ptr == nil
		}

		fillField(filled, field, method, cfg.Limit)

		for i := range filled {
			ptr, _ := barField(&filled[i], field)
			missingAfter := *ptr == nil
			wasFilled := missingBefore[i] && !missingAfter
			if wasFilled {
				counts[field]++
			}
			audit = append(audit, FillAudit{
				Date:              filled[i].Date,
				Symbol:            filled[i].Symbol,
				Field:             field,
				MissingBeforeFill: missingBefore[i],
				MissingAfterFill:  missingAfter,
				Filled:            wasFilled,
			})
		}
	}

	if !cfg.FillVolume {
		if _, ok := counts["volume"]; !ok {
			counts["volume"] = 0
		}
	}

	return filled, audit, counts, nil
}

// fillField applies a directional fill within each symbol group.
func fillField(bars []domain.Bar, field, method string, limit int) {
	forEachSymbolGroup(bars, func(group []domain.Bar) {
		if method == "ffill" {
			fillForward(group, field, limit)
		} else {
			fillBackward(group, field, limit)
		}
	})
}

func fillForward(group []domain.Bar, field string, limit int) {
	var last *float64
	run := 0
	for i := range group {
		ptr, _ := barField(&group[i], field)
		if *ptr != nil {
			v := **ptr
			last = &v
			run = 0
			continue
		}
		if last == nil {
			continue
		}
		run++
		if limit > 0 && run > limit {
			continue
		}
		v := *last
		*ptr = &v
	}
}

func fillBackward(group []domain.Bar, field string, limit int) {
	var next *float64
	run := 0
	for i := len(group) - 1; i >= 0; i-- {
		ptr, _ := barField(&group[i], field)
		if *ptr != nil {
			v := **ptr
			next = &v
			run = 0
			continue
		}
		if next == nil {
			continue
		}
		run++
		if limit > 0 && run > limit {
			continue
		}
		v := *next
		*ptr = &v
	}
}

// forEachSymbolGroup calls fn on each contiguous same-symbol run.
func forEachSymbolGroup(bars []domain.Bar, fn func(group []domain.Bar)) {
	start := 0
	for i := 1; i <= len(bars); i++ {
		if i == len(bars) || bars[i].Symbol != bars[start].Symbol {
			fn(bars[start:i])
			start = i
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
