package domain

import (
	"fmt"
	"time"
)

// ContractRow is one per-date observation of a futures contract.
// Multiple contracts may be visible on the same date for a root;
// Expiry is fixed per ContractID across the dates it is observed.
// A nil Expiry or empty ContractID excludes the row from the
// available set for that date.
type ContractRow struct {
	Date       time.Time
	ContractID string
	RootSymbol string
	Expiry     *time.Time
}

// ActiveContract is one row of the continuous series: the contract the
// roll engine tracks on a given date, tagged with the reason it is held.
type ActiveContract struct {
	Date           time.Time
	RootSymbol     string
	ContractID     string
	Expiry         *time.Time
	ActiveContract string
	RollReason     string
}

// RollEvent records a change of tracked contract. Initialization from
// the empty state is not logged; only non-null transitions are.
type RollEvent struct {
	Date         time.Time
	FromContract string
	ToContract   string
	Reason       string
	RootSymbol   string
}

// Roll reason codes.
const (
	RollReasonInitialize     = "initialize_active_contract"
	RollReasonUnavailable    = "contract_unavailable"
	RollReasonHold           = "hold_active_contract"
	RollReasonNoRollMetadata = "no_roll_metadata"
)

// RollReasonBeforeExpiry returns the reason code for an N-business-day
// pre-expiry roll, e.g. "roll_5bd_before_expiry".
func RollReasonBeforeExpiry(n int) string {
	return fmt.Sprintf("roll_%dbd_before_expiry", n)
}
