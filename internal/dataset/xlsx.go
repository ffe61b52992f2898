package dataset

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// XLSXOptions selects the worksheet of a workbook.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // banner rows above the header
}

// ReadXLSXTable parses a worksheet into a region table. The first row
// after SkipRows is the header; remaining rows are keyed by the ID column,
// with blank-ID rows dropped and counted.
func ReadXLSXTable(path string, opts XLSXOptions, idColumn string) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open xlsx")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var tbl *Table
	idIdx := -1
	skipped := 0
	for i, row := range sheet.Rows {
		if i < opts.SkipRows {
			continue
		}
		cells := rowToStrings(row)

		if tbl == nil {
			tbl = newTable(cells)
			idx, ok := tbl.lookup(idColumn)
			if !ok {
				return nil, eris.Errorf("dataset: xlsx sheet has no %q column", idColumn)
			}
			idIdx = idx
			continue
		}

		if idIdx >= len(cells) {
			skipped++
			continue
		}
		id := normalizeID(cells[idIdx])
		if id == "" {
			skipped++
			continue
		}
		tbl.add(id, cells)
	}
	if tbl == nil || tbl.Len() == 0 {
		return nil, eris.Errorf("dataset: xlsx sheet in %s has no data rows", path)
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped xlsx rows without region id", zap.Int("skipped", skipped))
	}
	return tbl, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("dataset: xlsx sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("dataset: xlsx sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
