package dataset

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DecodeJSONArray decodes a JSON array streaming, sending each element to
// a channel. Expects input in the form [{...},{...}]. Both channels are
// closed when processing completes.
func DecodeJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)

		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			errCh <- eris.Wrap(err, "json: read opening token")
			return
		}

		delim, ok := tok.(json.Delim)
		if !ok || delim != '[' {
			errCh <- eris.Errorf("json: expected '[', got %v", tok)
			return
		}

		for decoder.More() {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}

			var item T
			if err := decoder.Decode(&item); err != nil {
				errCh <- eris.Wrap(err, "json: decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
		}

		// Consume closing bracket.
		if _, err := decoder.Token(); err != nil && err != io.EOF {
			errCh <- eris.Wrap(err, "json: read closing token")
		}
	}()

	return outCh, errCh
}

// ReadJSONTable decodes a JSON array export into a region table. The keys
// of the first element define the columns; objects missing a key leave the
// field empty.
func ReadJSONTable(ctx context.Context, r io.Reader, idColumn string) (*Table, error) {
	items, errs := DecodeJSONArray[map[string]any](ctx, r)

	var tbl *Table
	var keys []string
	idIdx := -1
	skipped := 0
	for item := range items {
		if tbl == nil {
			keys = make([]string, 0, len(item))
			for k := range item {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			tbl = newTable(keys)
			idx, ok := tbl.lookup(idColumn)
			if !ok {
				return nil, eris.Errorf("dataset: json objects have no %q key", idColumn)
			}
			idIdx = idx
		}

		record := make([]string, len(keys))
		for i, k := range keys {
			record[i] = stringifyJSON(item[k])
		}
		id := normalizeID(record[idIdx])
		if id == "" {
			skipped++
			continue
		}
		tbl.add(id, record)
	}
	if err := <-errs; err != nil {
		return nil, eris.Wrap(err, "dataset: read json table")
	}
	if tbl == nil || tbl.Len() == 0 {
		return nil, eris.New("dataset: json table has no elements")
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped json elements without region id", zap.Int("skipped", skipped))
	}
	return tbl, nil
}

// stringifyJSON renders a decoded JSON value the way the CSV extracts
// would carry it; numbers use their shortest decimal form.
func stringifyJSON(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
