package marketdata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vol-rv-lab/internal/config"
	"vol-rv-lab/internal/domain"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func loadFixture(t *testing.T, content string) *RawTable {
	t.Helper()
	raw, err := LoadRawCSV(writeCSV(t, content))
	if err != nil {
		t.Fatalf("LoadRawCSV failed: %v", err)
	}
	return raw
}

func TestLoadRawCSV_EmptyFileFails(t *testing.T) {
	_, err := LoadRawCSV(writeCSV(t, "Date,Close\n"))
	if err == nil {
		t.Fatal("expected error for header-only file")
	}
}

func TestStandardize(t *testing.T) {
	raw := loadFixture(t, "Date,Close,Vol\n2024-01-08,18.5,1000\n2024-01-09,,2000\n")

	src := config.SourceConfig{
		Name:       "vx_front",
		Symbol:     "VX1",
		AssetType:  "future",
		Source:     "cboe",
		DateColumn: "Date",
		ColumnMapping: map[string]string{
			"close":  "Close",
			"volume": "Vol",
		},
	}

	asOf := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	bars, err := Standardize(raw, src, asOf)
	if err != nil {
		t.Fatalf("Standardize failed: %v", err)
	}

	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Symbol != "VX1" || bars[0].AssetType != "future" || bars[0].Source != "cboe" {
		t.Errorf("identity fields not standardized: %+v", bars[0])
	}
	if bars[0].Close == nil || *bars[0].Close != 18.5 {
		t.Errorf("expected close 18.5, got %v", bars[0].Close)
	}
	if bars[1].Close != nil {
		t.Errorf("expected empty close cell standardized to null")
	}
	if bars[0].Open != nil {
		t.Errorf("unmapped columns must stay null")
	}
	if err := MustValidateSchema(bars); err != nil {
		t.Errorf("standardized output must satisfy schema contract: %v", err)
	}
}

func TestStandardize_MissingDateColumnFails(t *testing.T) {
	raw := loadFixture(t, "Close\n18.5\n")
	src := config.SourceConfig{Name: "bad", Symbol: "X", DateColumn: "Date"}
	if _, err := Standardize(raw, src, time.Now()); err == nil {
		t.Fatal("expected error for missing date column")
	}
}

func TestValidateSchema_ReportsAllViolations(t *testing.T) {
	bars := []domain.Bar{{}} // everything null
	errs := ValidateSchema(bars)
	if len(errs) != 5 {
		t.Errorf("expected 5 violations on an all-null row, got %d: %v", len(errs), errs)
	}
}

func TestBuildMarketSeries(t *testing.T) {
	d1 := domain.NewDate(2024, time.January, 8)
	d2 := domain.NewDate(2024, time.January, 9)
	c1, c2 := 100.0, 110.0

	bars := []domain.Bar{
		{Date: d1, Symbol: "SPY", Close: &c1},
		{Date: d2, Symbol: "SPY", Close: &c2},
		{Date: d1, Symbol: "VIXY", Close: &c1},
	}

	series, err := BuildMarketSeries(bars, "SPY", "close")
	if err != nil {
		t.Fatalf("BuildMarketSeries failed: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(series))
	}
	if series[0].DailyReturn != 0 {
		t.Errorf("first-row return must be 0, got %v", series[0].DailyReturn)
	}
	if got := series[1].DailyReturn; got < 0.0999 || got > 0.1001 {
		t.Errorf("expected 10%% return, got %v", got)
	}
}

func TestBuildMarketSeries_MissingSymbolFails(t *testing.T) {
	if _, err := BuildMarketSeries(nil, "SPY", "close"); err == nil {
		t.Fatal("expected error for absent primary symbol")
	}
}

func TestLoadContractMetadata_DegradedModes(t *testing.T) {
	roll := config.RollConfig{ContractColumn: "contract", ExpiryColumn: "expiry", RootColumn: "root_symbol"}

	// Unset path degrades.
	rows, ok, err := LoadContractMetadata(config.ContractsConfig{}, roll)
	if err != nil || ok || rows != nil {
		t.Fatalf("expected degraded mode for unset path, got ok=%v err=%v", ok, err)
	}

	// Missing required columns degrades.
	path := writeCSV(t, "date,contract\n2024-01-08,VXF4\n")
	_, ok, err = LoadContractMetadata(config.ContractsConfig{Path: path}, roll)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected degraded mode for missing columns")
	}
}

func TestLoadContractMetadata(t *testing.T) {
	path := writeCSV(t, "date,contract,expiry,root_symbol\n2024-01-08,VXF4,2024-01-17,VX\n2024-01-08,VXG4,,VX\n")
	roll := config.RollConfig{ContractColumn: "contract", ExpiryColumn: "expiry", RootColumn: "root_symbol"}

	rows, ok, err := LoadContractMetadata(config.ContractsConfig{Path: path}, roll)
	if err != nil {
		t.Fatalf("LoadContractMetadata failed: %v", err)
	}
	if !ok {
		t.Fatal("expected usable metadata")
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Expiry == nil || !rows[0].Expiry.Equal(domain.NewDate(2024, time.January, 17)) {
		t.Errorf("expected parsed expiry, got %v", rows[0].Expiry)
	}
	if rows[1].Expiry != nil {
		t.Errorf("expected empty expiry to stay null")
	}
}
