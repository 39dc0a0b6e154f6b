package calendar

import (
	"fmt"
	"math"
	"time"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
	"vol-rv-lab/internal/stats"
)

// OutlierMark is one flagged observation in the outlier report.
// Detection is mark-only: values are never modified or removed.
type OutlierMark struct {
	Date   time.Time
	Symbol string
	Field  string
	Value  float64
	ZScore float64
}

// DetectOutliers marks per-symbol z-score outliers on the configured
// fields and returns the report ordered as the input. Symbols with
// fewer than MinObs valid observations, or zero dispersion, are
// skipped entirely.
func DetectOutliers(bars []domain.Bar, cfg config.OutlierConfig) ([]OutlierMark, error) {
	fields := cfg.Fields
	if len(fields) == 0 {
		fields = []string{"close"}
	}
	minObs := cfg.MinObs
	if minObs < 1 {
		minObs = 3
	}

	var report []OutlierMark

	for _, field := range fields {
		if _, ok := barField(&domain.Bar{}, field); !ok {
			return nil, fmt.Errorf("unknown outlier field: %s", field)
		}

		forEachSymbolGroup(bars, func(group []domain.Bar) {
			var valid []float64
			for i := range group {
				ptr, _ := barField(&group[i], field)
				if *ptr != nil {
					valid = append(valid, **ptr)
				}
			}
			if len(valid) < minObs {
				return
			}
			mean := stats.Mean(valid)
			std := stats.StdDevPop(valid)
			if std == 0 || math.IsNaN(std) {
				return
			}
			for i := range group {
				ptr, _ := barField(&group[i], field)
				if *ptr == nil {
					continue
				}
				z := (**ptr - mean) / std
				if math.Abs(z) >= cfg.ZScoreThreshold {
					report = append(report, OutlierMark{
						Date:   group[i].Date,
						Symbol: group[i].Symbol,
						Field:  field,
						Value:  **ptr,
						ZScore: z,
					})
				}
			}
		})
	}

	return report, nil
}
