// Package geodata loads region boundaries from polygon shapefiles and
// assigns point features to the regions containing them. Geometry is held
// as go-geom multipolygons in the coordinate system of the source file,
// EPSG:4326 for the city data portal exports.
package geodata

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
)

// ReadOptions maps shapefile attribute columns onto region fields. Field
// names are matched case-insensitively against the dBase header.
type ReadOptions struct {
	// IDField is the attribute column carrying the region identifier.
	IDField string
	// NameField is the attribute column carrying the display name. Empty
	// means the ID doubles as the name.
	NameField string
}

// LoadRegions reads a polygon shapefile into regions, ordered as the
// records appear in the file. Records with a blank or duplicate ID and
// records without a usable polygon are skipped and counted rather than
// failing the whole load.
func LoadRegions(shpPath string, opts ReadOptions) ([]model.Region, error) {
	if strings.TrimSpace(opts.IDField) == "" {
		return nil, eris.New("geodata: id field is required")
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "geodata: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	idIdx, ok := fieldIdx[strings.ToLower(opts.IDField)]
	if !ok {
		return nil, eris.Errorf("geodata: shapefile has no %q field", opts.IDField)
	}
	nameIdx := -1
	if opts.NameField != "" {
		nameIdx, ok = fieldIdx[strings.ToLower(opts.NameField)]
		if !ok {
			return nil, eris.Errorf("geodata: shapefile has no %q field", opts.NameField)
		}
	}

	var regions []model.Region
	seen := make(map[string]struct{})
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		id := attribute(reader, idIdx)
		if id == "" {
			skipped++
			continue
		}
		if _, dup := seen[id]; dup {
			skipped++
			continue
		}

		mp := toMultiPolygon(shape)
		if mp == nil {
			skipped++
			continue
		}

		name := id
		if nameIdx >= 0 {
			if v := attribute(reader, nameIdx); v != "" {
				name = v
			}
		}

		seen[id] = struct{}{}
		regions = append(regions, model.Region{ID: id, Name: name, Geometry: mp})
	}

	if skipped > 0 {
		zap.L().Debug("geodata: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	if len(regions) == 0 {
		return nil, eris.Errorf("geodata: no usable polygon records in %s", shpPath)
	}

	return regions, nil
}

// attribute returns the current record's value for a field, with dBase
// padding trimmed.
func attribute(r *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(r.Attribute(idx), "\x00"))
}

// toMultiPolygon converts a shapefile polygon record to a geom.MultiPolygon.
// Every part becomes its own single-ring polygon; hole parts are resolved
// later by the even-odd containment rule rather than by ring nesting.
// Returns nil for other shape types and for records with no valid ring.
func toMultiPolygon(shape shp.Shape) *geom.MultiPolygon {
	p, ok := shape.(*shp.Polygon)
	if !ok || p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("geodata: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}

		if err := mp.Push(poly); err != nil {
			zap.L().Debug("geodata: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
