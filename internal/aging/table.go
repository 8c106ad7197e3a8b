package aging

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is a single record of named string cells, as delivered by the
// ingestion layer. Missing cells and empty strings are equivalent.
type Row map[string]string

// Table is an in-memory tabular dataset. The engine never parses raw
// file bytes; it consumes tables already extracted upstream.
type Table struct {
	Columns []string
	Rows    []Row
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ColumnError reports that a required logical field could not be
// resolved from any of its candidate column names. It names the field
// and lists the columns actually present so a bad source file can be
// fixed instead of silently joining against all-empty values.
type ColumnError struct {
	Field      string
	Table      string
	Candidates []string
	Columns    []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("required column for %q not found in %s table: tried %v, have %v",
		e.Field, e.Table, e.Candidates, e.Columns)
}

// resolveColumn returns the first candidate present in the table, or a
// ColumnError naming the logical field.
func resolveColumn(t *Table, tableName, field string, candidates []string) (string, error) {
	for _, c := range candidates {
		if t.HasColumn(c) {
			return c, nil
		}
	}
	return "", &ColumnError{
		Field:      field,
		Table:      tableName,
		Candidates: candidates,
		Columns:    append([]string(nil), t.Columns...),
	}
}

// pickColumn is resolveColumn without the error: it returns "" when no
// candidate matches, for optional fields.
func pickColumn(t *Table, candidates []string) string {
	for _, c := range candidates {
		if t.HasColumn(c) {
			return c
		}
	}
	return ""
}

// parseFloat coerces a raw cell to a number. Thousands separators are
// stripped first. The second return is false for empty or unparsable
// input; callers decide whether that degrades to zero or null.
func parseFloat(raw string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// parseDate coerces a raw cell to a date. Unparsable input yields nil,
// which downstream treats as "no expiry".
func parseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}
