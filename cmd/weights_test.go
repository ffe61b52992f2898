package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/spatial"
)

func TestFormatWeights(t *testing.T) {
	regions := []model.Region{
		{ID: "1", Name: "Rogers Park", Geometry: serveSquare(t, 0, 0)},
		{ID: "2", Name: "West Ridge", Geometry: serveSquare(t, 1, 0)},
		{ID: "3", Name: "Uptown", Geometry: serveSquare(t, 2, 0)},
		{ID: "4", Name: "Edison Park", Geometry: serveSquare(t, 10, 10)},
	}
	ds := &model.Dataset{ID: "ds-weights", Regions: regions, CreatedAt: time.Now()}

	geoms := make([]*geom.MultiPolygon, len(regions))
	for i := range regions {
		geoms[i] = regions[i].Geometry
	}
	nl, err := spatial.BuildNeighbors(geoms, spatial.NeighborOptions{Contiguity: spatial.Queen})
	require.NoError(t, err)
	w := spatial.BuildWeights(nl, spatial.RowStandardized)

	var buf bytes.Buffer
	formatWeights(&buf, ds, nl, w, spatial.Queen, spatial.RowStandardized)
	out := buf.String()

	assert.Contains(t, out, "4 regions")
	assert.Contains(t, out, "queen contiguity")
	assert.Contains(t, out, "Edges: 2")
	assert.Contains(t, out, "DEGREE")
	assert.Contains(t, out, "Islands (1)")
	assert.Contains(t, out, "Edison Park")
}
