package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CSVOptions configures the streaming CSV reader.
type CSVOptions struct {
	Delimiter  rune            // default ','
	HasHeader  bool            // if true, first row is skipped but sent to HeaderCh
	HeaderCh   chan<- []string // optional: receives the header row
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads CSV records and sends them to a channel. The caller must
// consume the returned row channel; errors arrive on the error channel.
// Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // allow variable fields

		first := true
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			if first && opts.HasHeader {
				first = false
				if opts.HeaderCh != nil {
					select {
					case opts.HeaderCh <- record:
					case <-ctx.Done():
						errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled sending header")
						return
					}
				}
				continue
			}
			first = false

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSVTable parses a region attribute CSV into a table keyed by the ID
// column. Rows with a blank ID are dropped and counted; a later record for
// an already-seen ID replaces the earlier one.
func ReadCSVTable(ctx context.Context, r io.Reader, idColumn string) (*Table, error) {
	headerCh := make(chan []string, 1)
	rows, errs := StreamCSV(ctx, r, CSVOptions{
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
		TrimSpace:  true,
	})

	var tbl *Table
	idIdx := -1
	skipped := 0
	for record := range rows {
		if tbl == nil {
			// The header is sent before the first row, so it is already
			// buffered here.
			tbl = newTable(<-headerCh)
			idx, ok := tbl.lookup(idColumn)
			if !ok {
				return nil, eris.Errorf("dataset: csv has no %q column", idColumn)
			}
			idIdx = idx
		}

		if idIdx >= len(record) {
			skipped++
			continue
		}
		id := normalizeID(record[idIdx])
		if id == "" {
			skipped++
			continue
		}
		tbl.add(id, record)
	}
	if err := <-errs; err != nil {
		return nil, eris.Wrap(err, "dataset: read csv table")
	}
	if tbl == nil || tbl.Len() == 0 {
		return nil, eris.New("dataset: csv table has no data rows")
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped csv rows without region id", zap.Int("skipped", skipped))
	}
	return tbl, nil
}
