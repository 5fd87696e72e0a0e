package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrInputSchema indicates a required column is missing or a non-empty cell
// cannot be parsed as its declared type. Fatal, surfaced before any partial
// processing.
var ErrInputSchema = errors.New("input schema error")

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// table is a parsed CSV with case-insensitive header lookup.
type table struct {
	name    string
	header  map[string]int
	rows    [][]string
	aliases map[string]string
}

func readTable(path, name string, aliases map[string]string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s table: %w", name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s table: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s table has no header row", ErrInputSchema, name)
	}

	header := make(map[string]int, len(records[0]))
	for i, col := range records[0] {
		header[strings.ToLower(strings.TrimSpace(col))] = i
	}

	return &table{name: name, header: header, rows: records[1:], aliases: aliases}, nil
}

// require fails with ErrInputSchema when none of the column's names exist.
func (t *table) require(column string) (int, error) {
	if idx, ok := t.header[column]; ok {
		return idx, nil
	}
	if alias, ok := t.aliases[column]; ok {
		if idx, ok := t.header[alias]; ok {
			return idx, nil
		}
	}
	return -1, fmt.Errorf("%w: %s table missing required column %q", ErrInputSchema, t.name, column)
}

// optional returns -1 when the column is absent.
func (t *table) optional(column string) int {
	if idx, ok := t.header[column]; ok {
		return idx
	}
	if alias, ok := t.aliases[column]; ok {
		if idx, ok := t.header[alias]; ok {
			return idx
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseFloat returns NaN for empty cells and ErrInputSchema for unparseable
// non-empty cells.
func parseFloat(tableName, column, raw string, rowNum int) (float64, error) {
	if raw == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s table row %d: column %q: %q is not numeric",
			ErrInputSchema, tableName, rowNum, column, raw)
	}
	return v, nil
}

// parseTime returns the zero time for empty cells and ErrInputSchema for
// unparseable non-empty cells. Timestamps are normalized to UTC.
func parseTime(tableName, column, raw string, rowNum int) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s table row %d: column %q: %q is not a timestamp",
		ErrInputSchema, tableName, rowNum, column, raw)
}
