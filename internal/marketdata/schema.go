package marketdata

import (
	"fmt"
	"strings"

	"vol-rv-lab/internal/domain"
)

// ValidateSchema checks standardized bars against the canonical
// nullability contract: date, symbol, asset_type, source and the asof
// timestamp are non-null; price/volume fields may be null. It returns
// every violation, not just the first.
func ValidateSchema(bars []domain.Bar) []string {
	var errs []string
	for i, b := range bars {
		if b.Date.IsZero() {
			errs = append(errs, fmt.Sprintf("row %d: date is null", i))
		}
		if b.Symbol == "" {
			errs = append(errs, fmt.Sprintf("row %d: symbol is null", i))
		}
		if b.AssetType == "" {
			errs = append(errs, fmt.Sprintf("row %d: asset_type is null", i))
		}
		if b.Source == "" {
			errs = append(errs, fmt.Sprintf("row %d: source is null", i))
		}
		if b.AsOf.IsZero() {
			errs = append(errs, fmt.Sprintf("row %d: asof_timestamp is null", i))
		}
	}
	return errs
}

// MustValidateSchema fails fast with the joined error list, for strict
// pipeline behavior.
func MustValidateSchema(bars []domain.Bar) error {
	errs := ValidateSchema(bars)
	if len(errs) > 0 {
		return fmt.Errorf("standardized schema validation failed: %s", strings.Join(errs, " | "))
	}
	return nil
}
