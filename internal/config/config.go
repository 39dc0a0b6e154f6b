// Package config loads and validates YAML configuration for the
// research pipeline. Validation is fail-fast: an invalid config
// rejects the run before any computation starts.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config errors.
var (
	ErrNotMapping = errors.New("yaml config must be a mapping")
)

// BacktestConfig selects the market series and signal columns and sets
// the execution timing and sizing parameters.
type BacktestConfig struct {
	InitialCapital          float64 `yaml:"initial_capital" json:"initial_capital"`
	PrimarySymbol           string  `yaml:"primary_symbol" json:"primary_symbol"`
	PriceColumn             string  `yaml:"price_column" json:"price_column"`
	SignalColumn            string  `yaml:"signal_column" json:"signal_column"`
	CarrySignalColumn       string  `yaml:"carry_signal_column" json:"carry_signal_column"`
	SignalExecutionLagDays  int     `yaml:"signal_execution_lag_days" json:"signal_execution_lag_days"`
	EnforceNextBarExecution bool    `yaml:"enforce_next_bar_execution" json:"enforce_next_bar_execution"`
	SignalScale             float64 `yaml:"signal_scale" json:"signal_scale"`
}

// RiskControls bounds the target position and configures volatility
// targeting. LeverageCap defaults to PositionCapAbs when unset.
type RiskControls struct {
	PositionCapAbs   float64 `yaml:"position_cap_abs" json:"position_cap_abs"`
	LeverageCap      float64 `yaml:"leverage_cap" json:"leverage_cap"`
	EnableRiskTarget bool    `yaml:"enable_risk_target" json:"enable_risk_target"`
	TargetVolatility float64 `yaml:"target_volatility" json:"target_volatility"`
	VolWindow        int     `yaml:"vol_window" json:"vol_window"`
}

// Costs is the flat basis-point cost model. RollCostBps defaults to
// CommissionBps+SlippageBps when not separately configured.
type Costs struct {
	CommissionBps float64  `yaml:"commission_bps" json:"commission_bps"`
	SlippageBps   float64  `yaml:"slippage_bps" json:"slippage_bps"`
	RollCostBps   *float64 `yaml:"roll_cost_bps" json:"roll_cost_bps"`
}

// RollConfig configures the futures roll engine and the column names
// of the contract metadata source.
type RollConfig struct {
	NDaysBeforeExpiry int    `yaml:"n_days_before_expiry" json:"n_days_before_expiry"`
	ContractColumn    string `yaml:"contract_column" json:"contract_column"`
	ExpiryColumn      string `yaml:"expiry_column" json:"expiry_column"`
	RootColumn        string `yaml:"root_column" json:"root_column"`
}

// StressWindow names a historical date window for stress reporting.
type StressWindow struct {
	Name  string `yaml:"name" json:"name"`
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// RiskMetrics configures the downstream risk stage.
type RiskMetrics struct {
	VarConfidence  float64        `yaml:"var_confidence" json:"var_confidence"`
	VarHorizonDays int            `yaml:"var_horizon_days" json:"var_horizon_days"`
	ExposureWindow int            `yaml:"exposure_window" json:"exposure_window"`
	StressWindows  []StressWindow `yaml:"stress_windows" json:"stress_windows"`
}

// Paths holds artifact output locations.
type Paths struct {
	OutputDir string `yaml:"output_dir" json:"output_dir"`
}

// Config is the backtest-stage configuration tree.
type Config struct {
	Backtest     BacktestConfig `yaml:"backtest" json:"backtest"`
	RiskControls RiskControls   `yaml:"risk_controls" json:"risk_controls"`
	Costs        Costs          `yaml:"costs" json:"costs"`
	Roll         RollConfig     `yaml:"roll" json:"roll"`
	Risk         RiskMetrics    `yaml:"risk" json:"risk"`
	Paths        Paths          `yaml:"paths" json:"paths"`
}

// Default returns a Config with every recognized option at its
// documented default.
func Default() Config {
	return Config{
		Backtest: BacktestConfig{
			InitialCapital:          1_000_000,
			PrimarySymbol:           "SPY",
			PriceColumn:             "close",
			SignalColumn:            "signal_term_structure_slope",
			CarrySignalColumn:       "signal_carry_roll_down",
			SignalExecutionLagDays:  1,
			EnforceNextBarExecution: true,
			SignalScale:             1.0,
		},
		RiskControls: RiskControls{
			PositionCapAbs:   1.0,
			EnableRiskTarget: true,
			TargetVolatility: 0.10,
			VolWindow:        20,
		},
		Roll: RollConfig{
			NDaysBeforeExpiry: 5,
			ContractColumn:    "contract",
			ExpiryColumn:      "expiry",
			RootColumn:        "root_symbol",
		},
		Risk: RiskMetrics{
			VarConfidence:  0.95,
			VarHorizonDays: 1,
			ExposureWindow: 20,
		},
		Paths: Paths{OutputDir: "outputs/backtests"},
	}
}

// Load reads a YAML config file over the defaults and validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate enforces the fail-fast configuration rules. The zero-lag
// guard lives here so a lookahead-prone run is rejected before any
// mapping is attempted.
func (c *Config) Validate() error {
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be > 0, got %v", c.Backtest.InitialCapital)
	}
	if c.Backtest.SignalScale <= 0 {
		return fmt.Errorf("backtest.signal_scale must be > 0, got %v", c.Backtest.SignalScale)
	}
	if c.Backtest.SignalExecutionLagDays < 0 {
		return fmt.Errorf("backtest.signal_execution_lag_days must be >= 0, got %d", c.Backtest.SignalExecutionLagDays)
	}
	if c.Backtest.EnforceNextBarExecution && c.Backtest.SignalExecutionLagDays < 1 {
		return errors.New("no-lookahead guard: signal_execution_lag_days must be >= 1 when enforce_next_bar_execution is true")
	}
	if c.Backtest.PrimarySymbol == "" {
		return errors.New("backtest.primary_symbol must be set")
	}
	if c.RiskControls.PositionCapAbs <= 0 {
		return fmt.Errorf("risk_controls.position_cap_abs must be > 0, got %v", c.RiskControls.PositionCapAbs)
	}
	if c.RiskControls.LeverageCap == 0 {
		c.RiskControls.LeverageCap = c.RiskControls.PositionCapAbs
	}
	if c.RiskControls.LeverageCap < 0 {
		return fmt.Errorf("risk_controls.leverage_cap must be > 0, got %v", c.RiskControls.LeverageCap)
	}
	if c.RiskControls.EnableRiskTarget {
		if c.RiskControls.TargetVolatility <= 0 {
			return fmt.Errorf("risk_controls.target_volatility must be > 0, got %v", c.RiskControls.TargetVolatility)
		}
		if c.RiskControls.VolWindow < 2 {
			return fmt.Errorf("risk_controls.vol_window must be >= 2, got %d", c.RiskControls.VolWindow)
		}
	}
	if c.Costs.CommissionBps < 0 || c.Costs.SlippageBps < 0 {
		return errors.New("costs.commission_bps and costs.slippage_bps must be >= 0")
	}
	if c.Costs.RollCostBps != nil && *c.Costs.RollCostBps < 0 {
		return errors.New("costs.roll_cost_bps must be >= 0 when set")
	}
	if c.Roll.NDaysBeforeExpiry < 0 {
		return fmt.Errorf("roll.n_days_before_expiry must be >= 0, got %d", c.Roll.NDaysBeforeExpiry)
	}
	if c.Risk.VarConfidence <= 0 || c.Risk.VarConfidence >= 1 {
		return fmt.Errorf("risk.var_confidence must be in (0, 1), got %v", c.Risk.VarConfidence)
	}
	if c.Risk.VarHorizonDays < 1 {
		return fmt.Errorf("risk.var_horizon_days must be >= 1, got %d", c.Risk.VarHorizonDays)
	}
	return nil
}

// EffectiveRollCostBps resolves the roll-cost default.
func (c *Costs) EffectiveRollCostBps() float64 {
	if c.RollCostBps != nil {
		return *c.RollCostBps
	}
	return c.CommissionBps + c.SlippageBps
}
