package domain

import "time"

// RunMetrics holds the scalar performance metrics of a backtest run.
// HitRate and Sharpe are nil when undefined (empty run, zero stddev,
// fewer than 2 observations).
type RunMetrics struct {
	InitialCapital         float64  `json:"initial_capital"`
	TotalNetPnL            float64  `json:"total_net_pnl"`
	FinalEquity            float64  `json:"final_equity"`
	TotalCost              float64  `json:"total_cost"`
	Turnover               float64  `json:"turnover"`
	HitRate                *float64 `json:"hit_rate"`
	Sharpe                 *float64 `json:"sharpe"`
	RegularTradeCount      int      `json:"regular_trade_count"`
	RollTradeCount         int      `json:"roll_trade_count"`
	AttributionMaxAbsError float64  `json:"attribution_max_abs_error"`
}

// RunSummary is the JSON-serializable summary of a backtest run:
// the config snapshot it was produced with plus the scalar metrics.
type RunSummary struct {
	RunID          string     `json:"run_id"`
	GeneratedAt    time.Time  `json:"generated_at"`
	ConfigSnapshot any        `json:"config_snapshot"`
	Metrics        RunMetrics `json:"metrics"`
}
