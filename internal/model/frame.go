package model

import (
	"github.com/rotisserie/eris"
)

// Frame is a region-aligned numeric table: every column holds one value
// per region, in region order. It is the hand-off between ingestion and
// the statistics, which only ever see aligned float vectors.
type Frame struct {
	IDs     []string             `json:"ids"`
	Names   []string             `json:"names"`
	Order   []string             `json:"order"` // column names in insertion order
	Columns map[string][]float64 `json:"columns"`
}

// NewFrame starts a frame over the given regions.
func NewFrame(ids, names []string) *Frame {
	return &Frame{
		IDs:     ids,
		Names:   names,
		Columns: make(map[string][]float64),
	}
}

// Len returns the region count.
func (f *Frame) Len() int { return len(f.IDs) }

// AddColumn attaches a region-aligned column. The length must match the
// region count exactly; there is no implicit reindexing.
func (f *Frame) AddColumn(name string, values []float64) error {
	if len(values) != len(f.IDs) {
		return eris.Errorf("frame: column %q has %d values for %d regions", name, len(values), len(f.IDs))
	}
	if _, ok := f.Columns[name]; ok {
		return eris.Errorf("frame: column %q already present", name)
	}
	f.Columns[name] = values
	f.Order = append(f.Order, name)
	return nil
}

// Column returns the named column.
func (f *Frame) Column(name string) ([]float64, error) {
	col, ok := f.Columns[name]
	if !ok {
		return nil, eris.Errorf("frame: no column %q", name)
	}
	return col, nil
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.Columns[name]
	return ok
}

// Select returns the named columns in order, for assembling a design
// matrix.
func (f *Frame) Select(names ...string) ([][]float64, error) {
	out := make([][]float64, len(names))
	for i, name := range names {
		col, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		out[i] = col
	}
	return out, nil
}

// IndexOf returns the row position of a region ID, or -1.
func (f *Frame) IndexOf(id string) int {
	for i, v := range f.IDs {
		if v == id {
			return i
		}
	}
	return -1
}
