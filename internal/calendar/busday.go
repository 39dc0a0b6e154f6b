// Package calendar provides business-day math and the trading-calendar
// alignment and QA stages that turn standardized bars into a dense,
// flagged frame.
package calendar

import "time"

// IsBusinessDay reports whether d falls on a weekday.
func IsBusinessDay(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// BusinessDaysBetween counts weekdays in [start, end), matching
// numpy.busday_count: the start date is included when it is a weekday,
// the end date never is. Reversed arguments yield a negative count.
func BusinessDaysBetween(start, end time.Time) int {
	if end.Before(start) {
		return -BusinessDaysBetween(end, start)
	}
	count := 0
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			count++
		}
	}
	return count
}

// BusinessRange returns every weekday in [start, end] inclusive.
func BusinessRange(start, end time.Time) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			out = append(out, d)
		}
	}
	return out
}
