package domain

import "time"

// Bar represents one standardized daily bar in the canonical schema.
// Price and volume fields are nullable at this stage; identity fields are not.
type Bar struct {
	Date      time.Time // trading date, UTC midnight
	Symbol    string
	AssetType string // "etf" | "future" | "index" | "unknown"
	Open      *float64
	High      *float64
	Low       *float64
	Close     *float64
	Volume    *float64
	Source    string    // data source identifier
	AsOf      time.Time // standardization timestamp

	// Calendar-alignment flags (set by the alignment stage).
	IsDataMissing  bool
	IsMarketClosed bool
}

// MarketObservation is one row of the dense market series the backtest
// engine consumes: unique ascending dates for a single instrument.
// DailyReturn is the simple percent change from the prior row; the
// first row is defined as 0.
type MarketObservation struct {
	Date        time.Time
	Symbol      string
	Price       float64
	DailyReturn float64
}

// SignalPoint is one dated observation of a named signal.
// Value is nil where the signal is undefined (warm-up, missing inputs).
type SignalPoint struct {
	Date  time.Time
	Value *float64
}

// SignalSeries is a named signal keyed by date, ascending.
type SignalSeries struct {
	Name   string
	Points []SignalPoint
}
