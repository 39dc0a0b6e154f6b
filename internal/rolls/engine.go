// Package rolls implements the futures roll engine: it selects the
// active contract per root and date using only same-day-visible
// metadata and logs every change of tracked contract.
package rolls

import (
	"sort"
	"time"

	"vol-rv-lab/internal/calendar"
	"vol-rv-lab/internal/domain"
)

// Result holds the continuous active-contract series and the roll log.
type Result struct {
	Continuous []domain.ActiveContract
	RollLog    []domain.RollEvent
}

// BuildContinuous folds each root's date sequence in ascending order,
// carrying only the currently tracked contract. Decisions at date T
// never reference rows with a later date; the engine is strictly
// online. Roots are processed independently and the merged output is
// ordered by (date, active_contract); the roll log by (date, root).
//
// The roll rule: while the tracked contract remains available, count
// calendar business days from the current date to its expiry. When the
// count is at or below nDaysBeforeExpiry and a strictly later-expiry
// contract is visible, advance to the earliest such contract. A
// tracked contract that vanishes from the available set forces a
// re-selection of the earliest-expiry contract immediately.
func BuildContinuous(rows []domain.ContractRow, nDaysBeforeExpiry int) Result {
	if len(rows) == 0 {
		return Result{}
	}

	byRoot := make(map[string][]domain.ContractRow)
	var roots []string
	for _, row := range rows {
		if _, ok := byRoot[row.RootSymbol]; !ok {
			roots = append(roots, row.RootSymbol)
		}
		byRoot[row.RootSymbol] = append(byRoot[row.RootSymbol], row)
	}
	sort.Strings(roots)

	var result Result
	for _, root := range roots {
		continuous, events := processRoot(root, byRoot[root], nDaysBeforeExpiry)
		result.Continuous = append(result.Continuous, continuous...)
		result.RollLog = append(result.RollLog, events...)
	}

	sort.SliceStable(result.Continuous, func(i, j int) bool {
		a, b := result.Continuous[i], result.Continuous[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ActiveContract < b.ActiveContract
	})
	sort.SliceStable(result.RollLog, func(i, j int) bool {
		a, b := result.RollLog[i], result.RollLog[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.RootSymbol < b.RootSymbol
	})

	return result
}

// processRoot runs the roll rule over one root's date sequence.
func processRoot(root string, rows []domain.ContractRow, nDays int) ([]domain.ActiveContract, []domain.RollEvent) {
	byDate := make(map[time.Time][]domain.ContractRow)
	var dates []time.Time
	for _, row := range rows {
		if _, ok := byDate[row.Date]; !ok {
			dates = append(dates, row.Date)
		}
		byDate[row.Date] = append(byDate[row.Date], row)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var selected []domain.ActiveContract
	var events []domain.RollEvent

	current := "" // tracked contract, empty until first assignment

	for _, date := range dates {
		available := availableContracts(byDate[date])
		if len(available) == 0 {
			continue
		}

		reason := domain.RollReasonHold

		currentRow, tracked := findContract(available, current)
		if current == "" || !tracked {
			next := available[0]
			if current != "" && current != next.ContractID {
				events = append(events, domain.RollEvent{
					Date:         date,
					FromContract: current,
					ToContract:   next.ContractID,
					Reason:       domain.RollReasonUnavailable,
					RootSymbol:   root,
				})
			}
			current = next.ContractID
			currentRow = next
			reason = domain.RollReasonInitialize
		} else {
			dte := calendar.BusinessDaysBetween(date, *currentRow.Expiry)

			var later *domain.ContractRow
			for i := range available {
				if available[i].Expiry.After(*currentRow.Expiry) {
					later = &available[i]
					break
				}
			}

			if dte <= nDays && later != nil && later.ContractID != current {
				events = append(events, domain.RollEvent{
					Date:         date,
					FromContract: current,
					ToContract:   later.ContractID,
					Reason:       domain.RollReasonBeforeExpiry(nDays),
					RootSymbol:   root,
				})
				current = later.ContractID
				currentRow = *later
				reason = domain.RollReasonBeforeExpiry(nDays)
			}
		}

		selected = append(selected, domain.ActiveContract{
			Date:           date,
			RootSymbol:     root,
			ContractID:     currentRow.ContractID,
			Expiry:         currentRow.Expiry,
			ActiveContract: current,
			RollReason:     reason,
		})
	}

	return selected, events
}

// availableContracts filters to rows with a contract id and expiry,
// ordered by (expiry, contract_id) ascending.
func availableContracts(rows []domain.ContractRow) []domain.ContractRow {
	var out []domain.ContractRow
	for _, row := range rows {
		if row.ContractID != "" && row.Expiry != nil {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Expiry.Equal(*out[j].Expiry) {
			return out[i].Expiry.Before(*out[j].Expiry)
		}
		return out[i].ContractID < out[j].ContractID
	})
	return out
}

// findContract returns the first available row matching id.
func findContract(available []domain.ContractRow, id string) (domain.ContractRow, bool) {
	if id == "" {
		return domain.ContractRow{}, false
	}
	for _, row := range available {
		if row.ContractID == id {
			return row, true
		}
	}
	return domain.ContractRow{}, false
}

// Passthrough produces the degraded no-roll series used when contract
// metadata is absent: the instrument itself is the active contract and
// the roll log stays empty.
func Passthrough(symbol string, dates []time.Time) []domain.ActiveContract {
	out := make([]domain.ActiveContract, len(dates))
	for i, d := range dates {
		out[i] = domain.ActiveContract{
			Date:           d,
			RootSymbol:     symbol,
			ContractID:     symbol,
			ActiveContract: symbol,
			RollReason:     domain.RollReasonNoRollMetadata,
		}
	}
	return out
}
