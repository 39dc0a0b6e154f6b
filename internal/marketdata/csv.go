// Package marketdata loads raw vendor files and standardizes them into
// the canonical daily-bar schema the rest of the pipeline consumes.
package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
)

// Loader errors.
var (
	ErrEmptySource = errors.New("source file is empty")
)

// RawTable is a header-indexed CSV payload from one source file.
type RawTable struct {
	Header []string
	Rows   [][]string

	colIndex map[string]int
}

// LoadRawCSV reads a raw vendor CSV. An empty file, or a header with no
// data rows, is a hard error: structurally required data is never
// silently substituted.
func LoadRawCSV(path string) (*RawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, path)
	}

	table := &RawTable{
		Header:   records[0],
		Rows:     records[1:],
		colIndex: make(map[string]int, len(records[0])),
	}
	for i, name := range table.Header {
		table.colIndex[name] = i
	}
	return table, nil
}

// Column returns the index of a named column.
func (t *RawTable) Column(name string) (int, bool) {
	idx, ok := t.colIndex[name]
	return idx, ok
}

// Value returns the trimmed cell value of a named column in a row, or
// empty when the column is absent.
func (t *RawTable) Value(row []string, name string) string {
	idx, ok := t.colIndex[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}
