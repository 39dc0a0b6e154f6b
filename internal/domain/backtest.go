package domain

import "time"

// ExecutionMapping maps a signal observation date to the trading date
// it may first influence a trade. With a positive lag the execution
// date is strictly after the signal date; rows whose forward offset
// runs past the calendar end are dropped, never emitted with a zero
// execution date.
type ExecutionMapping struct {
	SignalDate    time.Time
	ExecutionDate time.Time
	SignalValue   float64
}

// PositionRecord is one row of the dense daily position frame: one row
// per trading date in the market calendar, immutable after the run is
// constructed. TargetPositionRaw forward-fills the last execution-mapped
// signal and is never NaN after the first valid observation.
type PositionRecord struct {
	Date              time.Time
	Symbol            string
	SignalValue       *float64
	SignalDate        *time.Time
	TargetPositionRaw float64
	TargetPosition    float64
	Position          float64
	PositionPrev      float64
	TradeQty          float64
	Price             float64
	DailyReturn       float64
	IsRollDate        bool
}

// Trade types.
const (
	TradeTypeRebalance = "rebalance"
	TradeTypeRoll      = "roll"
)

// TradeRecord is a discrete trade emitted from a day-over-day position
// delta (rebalance) or a roll date with a non-zero held position (roll).
// A single date may emit both. Records are immutable once emitted.
type TradeRecord struct {
	Date           time.Time
	SignalDate     *time.Time
	Symbol         string
	TradeType      string
	TargetPosition float64
	PositionBefore float64
	PositionAfter  float64
	TradeQty       float64
	Price          float64
	Notional       float64
	RegularCost    float64
	RollCost       float64
	TotalCost      float64
}

// PnLRecord is one day of P&L accounting. GrossPnL uses the position
// held going into the day against the day's return, so a position
// established today first earns tomorrow. Equity is initial capital
// plus the running sum of NetPnL, never re-derived from trades.
type PnLRecord struct {
	Date         time.Time
	Symbol       string
	PositionPrev float64
	DailyReturn  float64
	GrossPnL     float64
	CostsPnL     float64
	NetPnL       float64
	Equity       float64
}

// AttributionRecord decomposes one day of net P&L. The components must
// sum to PnLTotal within floating tolerance; the residual absorbs any
// imbalance by construction and is verified post hoc.
type AttributionRecord struct {
	Date              time.Time
	Symbol            string
	PnLTotal          float64
	CarryRollPnL      float64
	SpotCurveMovePnL  float64
	CostsPnL          float64
	ConvexityProxyPnL float64
	ResidualPnL       float64
}
