package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
)

// Alignment errors.
var (
	ErrNoDates        = errors.New("alignment requires at least one dated row")
	ErrCalendarBounds = errors.New("calendar start is after end")
)

// MissingFlag is one row of the alignment report.
type MissingFlag struct {
	Date           time.Time
	Symbol         string
	IsDataMissing  bool
	IsMarketClosed bool
}

// BuildTargetCalendar derives the business-day calendar from config
// bounds, falling back to the observed data bounds.
func BuildTargetCalendar(bars []domain.Bar, cfg config.CalendarConfig) ([]time.Time, error) {
	var start, end time.Time

	if cfg.Start != "" {
		parsed, err := domain.ParseDate(cfg.Start)
		if err != nil {
			return nil, fmt.Errorf("parse calendar start: %w", err)
		}
		start = parsed
	}
	if cfg.End != "" {
		parsed, err := domain.ParseDate(cfg.End)
		if err != nil {
			return nil, fmt.Errorf("parse calendar end: %w", err)
		}
		end = parsed
	}

	if start.IsZero() || end.IsZero() {
		if len(bars) == 0 {
			return nil, ErrNoDates
		}
		min, max := bars[0].Date, bars[0].Date
		for _, b := range bars[1:] {
			if b.Date.Before(min) {
				min = b.Date
			}
			if b.Date.After(max) {
				max = b.Date
			}
		}
		if start.IsZero() {
			start = min
		}
		if end.IsZero() {
			end = max
		}
	}

	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrCalendarBounds, domain.FormatDate(start), domain.FormatDate(end))
	}
	return BusinessRange(start, end), nil
}

// AlignToCalendar reindexes each symbol to the target calendar and
// marks data-missing placeholders. Duplicate symbol/date rows keep the
// last observation; missing dates produce empty bars with
// IsDataMissing set. Output ordering is (symbol, date) ascending.
func AlignToCalendar(bars []domain.Bar, cfg config.CalendarConfig) ([]domain.Bar, []MissingFlag, error) {
	if len(bars) == 0 {
		return nil, nil, nil
	}

	cal, err := BuildTargetCalendar(bars, cfg)
	if err != nil {
		return nil, nil, err
	}

	bySymbol := make(map[string]map[time.Time]domain.Bar)
	var symbols []string
	for _, b := range bars {
		if b.Symbol == "" {
			return nil, nil, errors.New("alignment requires a symbol on every row")
		}
		m, ok := bySymbol[b.Symbol]
		if !ok {
			m = make(map[time.Time]domain.Bar)
			bySymbol[b.Symbol] = m
			symbols = append(symbols, b.Symbol)
		}
		// Last observation wins on duplicate dates; duplicates are
		// surfaced via the QA report, not silently averaged.
		m[b.Date] = b
	}
	sort.Strings(symbols)

	var aligned []domain.Bar
	var flags []MissingFlag

	for _, symbol := range symbols {
		byDate := bySymbol[symbol]
		for _, d := range cal {
			bar, ok := byDate[d]
			if !ok {
				bar = domain.Bar{Date: d, Symbol: symbol, IsDataMissing: true}
			} else {
				bar.IsDataMissing = bar.Close == nil
			}
			bar.IsMarketClosed = false
			aligned = append(aligned, bar)
			flags = append(flags, MissingFlag{
				Date:           d,
				Symbol:         symbol,
				IsDataMissing:  bar.IsDataMissing,
				IsMarketClosed: bar.IsMarketClosed,
			})
		}
	}

	return aligned, flags, nil
}
