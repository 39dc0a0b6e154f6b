package backtest

import (
	"errors"
	"testing"
	"time"

	"vol-rv-lab/internal/domain"
)

func weekdays(start time.Time, n int) []time.Time {
	dates := make([]time.Time, 0, n)
	d := start
	for len(dates) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return dates
}

func fptr(v float64) *float64 { return &v }

func TestMapSignalToExecutionLagOne(t *testing.T) {
	dates := weekdays(domain.NewDate(2024, time.January, 8), 5)

	signal := []domain.SignalPoint{
		{Date: dates[0], Value: fptr(1.0)},
		{Date: dates[1], Value: fptr(2.0)},
		{Date: dates[4], Value: fptr(3.0)}, // past end after lag, dropped
	}

	mappings, err := MapSignalToExecution(signal, dates, 1)
	if err != nil {
		t.Fatalf("MapSignalToExecution: %v", err)
	}
	if len(mappings) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(mappings))
	}
	for i, m := range mappings {
		if !m.ExecutionDate.After(m.SignalDate) {
			t.Errorf("mapping %d: execution %s not after signal %s",
				i, domain.FormatDate(m.ExecutionDate), domain.FormatDate(m.SignalDate))
		}
	}
	if !mappings[0].ExecutionDate.Equal(dates[1]) || mappings[0].SignalValue != 1.0 {
		t.Errorf("unexpected first mapping: %+v", mappings[0])
	}
}

func TestMapSignalToExecutionDropsNullsAndUnknownDates(t *testing.T) {
	dates := weekdays(domain.NewDate(2024, time.January, 8), 5)

	signal := []domain.SignalPoint{
		{Date: dates[0], Value: nil},
		{Date: domain.NewDate(2024, time.January, 13), Value: fptr(1.0)}, // Saturday
		{Date: dates[2], Value: fptr(2.0)},
	}

	mappings, err := MapSignalToExecution(signal, dates, 1)
	if err != nil {
		t.Fatalf("MapSignalToExecution: %v", err)
	}
	if len(mappings) != 1 {
		t.Fatalf("expected 1 mapping, got %d", len(mappings))
	}
	if mappings[0].SignalValue != 2.0 {
		t.Errorf("unexpected mapping: %+v", mappings[0])
	}
}

func TestMapSignalToExecutionZeroLagSameDay(t *testing.T) {
	dates := weekdays(domain.NewDate(2024, time.January, 8), 3)
	signal := []domain.SignalPoint{{Date: dates[1], Value: fptr(1.0)}}

	mappings, err := MapSignalToExecution(signal, dates, 0)
	if err != nil {
		t.Fatalf("MapSignalToExecution: %v", err)
	}
	if len(mappings) != 1 || !mappings[0].ExecutionDate.Equal(dates[1]) {
		t.Fatalf("expected same-day execution, got %+v", mappings)
	}
}

func TestMapSignalToExecutionNegativeLag(t *testing.T) {
	dates := weekdays(domain.NewDate(2024, time.January, 8), 3)
	if _, err := MapSignalToExecution(nil, dates, -1); !errors.Is(err, ErrNegativeLag) {
		t.Fatalf("expected ErrNegativeLag, got %v", err)
	}
}

func TestMapSignalToExecutionLookaheadGuard(t *testing.T) {
	// An unsorted calendar makes index+lag land on a date that is not
	// strictly after the signal date. That must error, never drop.
	d1 := domain.NewDate(2024, time.January, 8)
	d2 := domain.NewDate(2024, time.January, 9)
	dates := []time.Time{d2, d1}
	signal := []domain.SignalPoint{{Date: d2, Value: fptr(1.0)}}

	if _, err := MapSignalToExecution(signal, dates, 1); !errors.Is(err, ErrLookahead) {
		t.Fatalf("expected ErrLookahead, got %v", err)
	}
}
