package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes one raw vendor file and how its columns map
// onto the canonical schema. Either SymbolColumn or Symbol must be set.
type SourceConfig struct {
	Name          string            `yaml:"name" json:"name"`
	Path          string            `yaml:"path" json:"path"`
	Source        string            `yaml:"source" json:"source"`
	AssetType     string            `yaml:"asset_type" json:"asset_type"`
	DateColumn    string            `yaml:"date_column" json:"date_column"`
	DateLayout    string            `yaml:"date_layout" json:"date_layout"`
	SymbolColumn  string            `yaml:"symbol_column" json:"symbol_column"`
	Symbol        string            `yaml:"symbol" json:"symbol"`
	ColumnMapping map[string]string `yaml:"column_mapping" json:"column_mapping"`
}

// CalendarConfig bounds the target trading calendar. Empty start/end
// fall back to the observed data bounds.
type CalendarConfig struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// FillConfig controls missing-data fills during QA.
type FillConfig struct {
	Fields     []string `yaml:"fields" json:"fields"`
	Method     string   `yaml:"method" json:"method"`
	Limit      int      `yaml:"limit" json:"limit"` // 0 = unlimited
	FillVolume bool     `yaml:"fill_volume" json:"fill_volume"`
}

// OutlierConfig controls z-score outlier marking (mark-only).
type OutlierConfig struct {
	Fields          []string `yaml:"fields" json:"fields"`
	ZScoreThreshold float64  `yaml:"zscore_threshold" json:"zscore_threshold"`
	MinObs          int      `yaml:"min_obs" json:"min_obs"`
}

// ContractsConfig locates the contract metadata source for the roll
// engine. An empty path puts the roll stage into no-metadata mode.
type ContractsConfig struct {
	Path       string `yaml:"path" json:"path"`
	DateColumn string `yaml:"date_column" json:"date_column"`
	DateLayout string `yaml:"date_layout" json:"date_layout"`
}

// SignalParams is a free-form parameter bag for one signal builder.
type SignalParams map[string]any

// SignalsConfig selects and parameterizes the registered signals.
type SignalsConfig struct {
	Enabled []string                `yaml:"enabled" json:"enabled"`
	Params  map[string]SignalParams `yaml:"params" json:"params"`
}

// DataConfig is the data-pipeline configuration tree.
type DataConfig struct {
	Sources   []SourceConfig  `yaml:"sources" json:"sources"`
	Calendar  CalendarConfig  `yaml:"calendar" json:"calendar"`
	Fill      FillConfig      `yaml:"fill" json:"fill"`
	Outliers  OutlierConfig   `yaml:"outliers" json:"outliers"`
	Contracts ContractsConfig `yaml:"contracts" json:"contracts"`
	Signals   SignalsConfig   `yaml:"signals" json:"signals"`
	Paths     Paths           `yaml:"paths" json:"paths"`
}

// DefaultData returns the data-pipeline defaults.
func DefaultData() DataConfig {
	return DataConfig{
		Fill: FillConfig{
			Fields: []string{"open", "high", "low", "close"},
			Method: "ffill",
		},
		Outliers: OutlierConfig{
			Fields:          []string{"close"},
			ZScoreThreshold: 3.0,
			MinObs:          3,
		},
		Contracts: ContractsConfig{
			DateColumn: "date",
			DateLayout: "2006-01-02",
		},
		Paths: Paths{OutputDir: "outputs/data"},
	}
}

// LoadData reads a YAML data config over the defaults and validates it.
func LoadData(path string) (DataConfig, error) {
	cfg := DefaultData()

	raw, err := os.ReadFile(path)
	if err != nil {
		return DataConfig{}, fmt.Errorf("read data config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return DataConfig{}, fmt.Errorf("parse data config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return DataConfig{}, fmt.Errorf("validate data config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate enforces structural requirements on the data config.
func (c *DataConfig) Validate() error {
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.Name == "" {
			return fmt.Errorf("sources[%d].name must be set", i)
		}
		if src.Path == "" {
			return fmt.Errorf("source %q: path must be set", src.Name)
		}
		if src.SymbolColumn == "" && src.Symbol == "" {
			return fmt.Errorf("source %q: symbol_column or symbol must be set", src.Name)
		}
		if src.DateColumn == "" {
			src.DateColumn = "date"
		}
		if src.DateLayout == "" {
			src.DateLayout = "2006-01-02"
		}
	}
	switch c.Fill.Method {
	case "", "ffill", "bfill":
	default:
		return fmt.Errorf("fill.method must be ffill or bfill, got %q", c.Fill.Method)
	}
	if c.Outliers.ZScoreThreshold <= 0 {
		return fmt.Errorf("outliers.zscore_threshold must be > 0, got %v", c.Outliers.ZScoreThreshold)
	}
	return nil
}
