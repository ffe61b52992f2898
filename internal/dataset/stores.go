package dataset

import (
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
)

// StoreColumns maps license-feed columns onto store point fields.
type StoreColumns struct {
	License  string
	Name     string
	Category string
	Address  string
	Lat      string
	Lon      string
}

// DefaultStoreColumns matches the city business-license extract.
func DefaultStoreColumns() StoreColumns {
	return StoreColumns{
		License:  "license id",
		Name:     "doing business as name",
		Category: "business activity",
		Address:  "address",
		Lat:      "latitude",
		Lon:      "longitude",
	}
}

// StoreFilter keeps rows whose category contains any of the terms,
// case-insensitively. Empty keeps every row.
type StoreFilter []string

func (f StoreFilter) keep(category string) bool {
	if len(f) == 0 {
		return true
	}
	lower := strings.ToLower(category)
	for _, term := range f {
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// ReadStoresCSV streams a license CSV into store points. Rows outside the
// category filter are dropped silently; rows without usable coordinates
// are dropped and counted.
func ReadStoresCSV(ctx context.Context, r io.Reader, cols StoreColumns, filter StoreFilter) ([]model.StorePoint, error) {
	headerCh := make(chan []string, 1)
	rows, errs := StreamCSV(ctx, r, CSVOptions{
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
		TrimSpace:  true,
	})

	var tbl *Table // header lookup only; records stay streamed
	var latIdx, lonIdx int
	var stores []model.StorePoint
	skipped := 0

	field := func(record []string, idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	licIdx, nameIdx, catIdx, addrIdx := -1, -1, -1, -1
	for record := range rows {
		if tbl == nil {
			tbl = newTable(<-headerCh)
			var ok bool
			latIdx, ok = tbl.lookup(cols.Lat)
			if !ok {
				return nil, eris.Errorf("dataset: stores csv has no %q column", cols.Lat)
			}
			lonIdx, ok = tbl.lookup(cols.Lon)
			if !ok {
				return nil, eris.Errorf("dataset: stores csv has no %q column", cols.Lon)
			}
			licIdx, _ = tbl.lookup(cols.License)
			nameIdx, _ = tbl.lookup(cols.Name)
			catIdx, _ = tbl.lookup(cols.Category)
			addrIdx, _ = tbl.lookup(cols.Address)
		}

		category := field(record, catIdx)
		if !filter.keep(category) {
			continue
		}

		lat, okLat := cleanNumber(field(record, latIdx))
		lon, okLon := cleanNumber(field(record, lonIdx))
		if !okLat || !okLon || (lat == 0 && lon == 0) {
			skipped++
			continue
		}

		stores = append(stores, model.StorePoint{
			License:  field(record, licIdx),
			Name:     field(record, nameIdx),
			Category: category,
			Address:  field(record, addrIdx),
			Lat:      lat,
			Lon:      lon,
		})
	}
	if err := <-errs; err != nil {
		return nil, eris.Wrap(err, "dataset: read stores csv")
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped store rows without coordinates", zap.Int("skipped", skipped))
	}
	return stores, nil
}

// storeRecord is the wire shape of the license feed's JSON export.
type storeRecord struct {
	License   string `json:"license_id"`
	Name      string `json:"doing_business_as_name"`
	Category  string `json:"business_activity"`
	Address   string `json:"address"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// ReadStoresJSON decodes a JSON array export into store points, applying
// the same category filter and coordinate checks as the CSV path.
func ReadStoresJSON(ctx context.Context, r io.Reader, filter StoreFilter) ([]model.StorePoint, error) {
	items, errs := DecodeJSONArray[storeRecord](ctx, r)

	var stores []model.StorePoint
	skipped := 0
	for item := range items {
		if !filter.keep(item.Category) {
			continue
		}

		lat, okLat := cleanNumber(item.Latitude)
		lon, okLon := cleanNumber(item.Longitude)
		if !okLat || !okLon || (lat == 0 && lon == 0) {
			skipped++
			continue
		}

		stores = append(stores, model.StorePoint{
			License:  strings.TrimSpace(item.License),
			Name:     strings.TrimSpace(item.Name),
			Category: strings.TrimSpace(item.Category),
			Address:  strings.TrimSpace(item.Address),
			Lat:      lat,
			Lon:      lon,
		})
	}
	if err := <-errs; err != nil {
		return nil, eris.Wrap(err, "dataset: read stores json")
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped store records without coordinates", zap.Int("skipped", skipped))
	}
	return stores, nil
}
