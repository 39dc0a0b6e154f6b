package marketdata

import (
	"fmt"
	"time"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
)

// LoadContractMetadata reads the contract metadata table for the roll
// engine. The boolean result reports whether usable metadata exists:
// an unset path or a file missing the configured contract/expiry/root
// columns degrades to (nil, false, nil) so the roll stage can fall
// back to no-roll passthrough, per the fail-soft contract. I/O and
// parse failures on a present, well-formed file remain hard errors.
func LoadContractMetadata(contracts config.ContractsConfig, roll config.RollConfig) ([]domain.ContractRow, bool, error) {
	if contracts.Path == "" {
		return nil, false, nil
	}

	raw, err := LoadRawCSV(contracts.Path)
	if err != nil {
		return nil, false, err
	}

	dateCol := contracts.DateColumn
	if dateCol == "" {
		dateCol = "date"
	}
	layout := contracts.DateLayout
	if layout == "" {
		layout = domain.DateLayout
	}

	for _, required := range []string{dateCol, roll.ContractColumn, roll.ExpiryColumn, roll.RootColumn} {
		if _, ok := raw.Column(required); !ok {
			return nil, false, nil
		}
	}

	rows := make([]domain.ContractRow, 0, len(raw.Rows))
	for i, rec := range raw.Rows {
		date, err := time.Parse(layout, raw.Value(rec, dateCol))
		if err != nil {
			return nil, false, fmt.Errorf("contracts row %d: parse date: %w", i+1, err)
		}

		row := domain.ContractRow{
			Date:       domain.Midnight(date),
			ContractID: raw.Value(rec, roll.ContractColumn),
			RootSymbol: raw.Value(rec, roll.RootColumn),
		}

		// Unparseable expiries become nulls; the roll engine excludes
		// them from the available set rather than failing the load.
		if expiryCell := raw.Value(rec, roll.ExpiryColumn); expiryCell != "" {
			if expiry, err := time.Parse(layout, expiryCell); err == nil {
				e := domain.Midnight(expiry)
				row.Expiry = &e
			}
		}

		rows = append(rows, row)
	}

	return rows, true, nil
}
