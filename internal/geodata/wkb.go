package geodata

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// EncodeWKB serializes a region geometry to EWKB bytes for the store.
// Returns nil, nil for a nil geometry.
func EncodeWKB(g *geom.MultiPolygon) ([]byte, error) {
	if g == nil {
		return nil, nil
	}
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geodata: encode WKB")
	}
	return data, nil
}

// DecodeWKB restores a region geometry from its EWKB bytes. Returns
// nil, nil for empty input.
func DecodeWKB(data []byte) (*geom.MultiPolygon, error) {
	if len(data) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "geodata: decode WKB")
	}
	mp, ok := g.(*geom.MultiPolygon)
	if !ok {
		return nil, eris.Errorf("geodata: expected multipolygon geometry, got %T", g)
	}
	return mp, nil
}
