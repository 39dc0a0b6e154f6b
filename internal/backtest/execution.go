// Package backtest implements the no-lookahead backtest engine:
// signal-to-execution timing, position sizing under risk constraints,
// trade and cost generation, P&L accounting and attribution.
package backtest

import (
	"errors"
	"fmt"
	"time"

	"vol-rv-lab/internal/domain"
)

// Execution mapping errors.
var (
	// ErrNegativeLag rejects a negative execution lag outright.
	ErrNegativeLag = errors.New("signal_execution_lag_days must be >= 0")

	// ErrLookahead marks a violated temporal-ordering guard. This is a
	// correctness failure and is never downgraded to a drop.
	ErrLookahead = errors.New("lookahead guard failed")
)

// MapSignalToExecution maps each signal observation onto the trading
// date lagDays positions forward on the market's trading-date index.
// Null-valued signals, signal dates that are not trading dates, and
// offsets past the end of the calendar are dropped. With lagDays > 0
// every emitted mapping has execution strictly after observation; a
// violation is an error, not a silent drop.
func MapSignalToExecution(signal []domain.SignalPoint, tradingDates []time.Time, lagDays int) ([]domain.ExecutionMapping, error) {
	if lagDays < 0 {
		return nil, ErrNegativeLag
	}

	dateIndex := make(map[time.Time]int, len(tradingDates))
	for i, d := range tradingDates {
		dateIndex[d] = i
	}

	var mappings []domain.ExecutionMapping
	for _, point := range signal {
		if point.Value == nil {
			continue
		}
		idx, ok := dateIndex[point.Date]
		if !ok {
			continue
		}
		execIdx := idx + lagDays
		if execIdx >= len(tradingDates) {
			continue
		}

		executionDate := tradingDates[execIdx]
		if lagDays > 0 && !executionDate.After(point.Date) {
			return nil, fmt.Errorf("%w: execution_date=%s signal_date=%s lag=%d",
				ErrLookahead, domain.FormatDate(executionDate), domain.FormatDate(point.Date), lagDays)
		}

		mappings = append(mappings, domain.ExecutionMapping{
			SignalDate:    point.Date,
			ExecutionDate: executionDate,
			SignalValue:   *point.Value,
		})
	}

	return mappings, nil
}
