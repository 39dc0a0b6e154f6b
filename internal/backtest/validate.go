package backtest

import (
	"errors"
	"fmt"
	"math"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
)

// Output-contract tolerances.
const (
	attributionTolerance = 1e-8
	positionTolerance    = 1e-10
)

// Output-contract errors.
var (
	ErrPositionBound        = errors.New("position exceeds leverage cap")
	ErrTradeReconciliation  = errors.New("cumulative rebalance quantity does not reconcile with final position")
	ErrAttributionIdentity  = errors.New("attribution components do not reconcile with total pnl")
	ErrRollTradeWithoutFlag = errors.New("roll trade on a date not flagged as a roll date")
)

// ValidateResult checks the output invariants of a completed run.
// Violations indicate an engine defect, not bad input data.
func ValidateResult(result *Result, cfg config.Config) error {
	levCap := cfg.RiskControls.LeverageCap
	if levCap == 0 {
		levCap = cfg.RiskControls.PositionCapAbs
	}

	rollFlag := make(map[string]bool, len(result.Positions))
	for _, pos := range result.Positions {
		if math.Abs(pos.Position) > levCap+positionTolerance {
			return fmt.Errorf("%w: %s position=%.12f cap=%.4f",
				ErrPositionBound, domain.FormatDate(pos.Date), pos.Position, levCap)
		}
		rollFlag[domain.FormatDate(pos.Date)] = pos.IsRollDate
	}

	cumQty := 0.0
	for _, trade := range result.Trades {
		switch trade.TradeType {
		case domain.TradeTypeRebalance:
			cumQty += trade.TradeQty
		case domain.TradeTypeRoll:
			if !rollFlag[domain.FormatDate(trade.Date)] {
				return fmt.Errorf("%w: %s", ErrRollTradeWithoutFlag, domain.FormatDate(trade.Date))
			}
		}
	}
	if len(result.Positions) > 0 {
		final := result.Positions[len(result.Positions)-1].Position
		if math.Abs(cumQty-final) > positionTolerance {
			return fmt.Errorf("%w: cumulative=%.12f final=%.12f",
				ErrTradeReconciliation, cumQty, final)
		}
	}

	if maxErr := MaxReconciliationError(result.Attribution); maxErr > attributionTolerance {
		return fmt.Errorf("%w: max abs error %.3e", ErrAttributionIdentity, maxErr)
	}

	return nil
}
