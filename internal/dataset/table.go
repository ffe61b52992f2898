package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Table is one parsed attribute extract: a normalized header plus one
// record per region, keyed by the canonical region ID.
type Table struct {
	Columns []string
	Rows    map[string][]string

	colIdx map[string]int
}

func newTable(header []string) *Table {
	t := &Table{
		Columns: make([]string, len(header)),
		Rows:    make(map[string][]string),
		colIdx:  make(map[string]int, len(header)),
	}
	for i, col := range header {
		norm := normalizeCol(col)
		t.Columns[i] = norm
		t.colIdx[norm] = i
	}
	return t
}

func (t *Table) add(id string, record []string) {
	t.Rows[id] = record
}

// lookup resolves a column name to its record index.
func (t *Table) lookup(column string) (int, bool) {
	idx, ok := t.colIdx[normalizeCol(column)]
	return idx, ok
}

// Has reports whether the header carries the column.
func (t *Table) Has(column string) bool {
	_, ok := t.lookup(column)
	return ok
}

// HasRegion reports whether the table holds a record for the region.
func (t *Table) HasRegion(id string) bool {
	_, ok := t.Rows[id]
	return ok
}

// Len returns the record count.
func (t *Table) Len() int { return len(t.Rows) }

// Value returns the field for a region and column, empty when either is
// absent or the record is shorter than the header.
func (t *Table) Value(id, column string) string {
	idx, ok := t.lookup(column)
	rec, has := t.Rows[id]
	if !ok || !has || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

// normalizeCol lowercases and collapses whitespace for cross-format column
// matching: "PER CAPITA INCOME " and "per capita income" are the same
// column.
func normalizeCol(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// normalizeID canonicalizes a region identifier. Integral floats collapse
// to their integer form so the "35.0" produced by spreadsheet number cells
// joins against the "35" in the boundary file; identifiers without a
// decimal point pass through untouched, preserving any leading zeros.
func normalizeID(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") {
		return s
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return s
}

// cleanNumber parses a portal-formatted numeric field: currency signs,
// thousands separators and percent suffixes are stripped before parsing.
// Blanks and suppression markers report false.
func cleanNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "-", "--", "*", "**", "#":
		return 0, false
	}
	if strings.EqualFold(s, "n/a") || strings.EqualFold(s, "na") {
		return 0, false
	}
	cleaned := strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
