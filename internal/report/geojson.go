package report

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
)

// GeoJSON renders a run as a choropleth-ready FeatureCollection: one
// feature per region carrying its boundary and the run's per-region
// outputs. Region order follows the dataset.
func GeoJSON(ds *model.Dataset, run *model.Run) ([]byte, error) {
	result, err := resultOf(run)
	if err != nil {
		return nil, err
	}
	counts := storeCounts(ds)

	geoms := make(map[string]*model.Region, len(ds.Regions))
	for i := range ds.Regions {
		geoms[ds.Regions[i].ID] = &ds.Regions[i]
	}

	fc := &geojson.FeatureCollection{}
	for _, out := range result.Regions {
		region, ok := geoms[out.RegionID]
		if !ok || region.Geometry == nil {
			return nil, eris.Errorf("report: region %s has no geometry", out.RegionID)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       out.RegionID,
			Geometry: region.Geometry,
			Properties: map[string]interface{}{
				"region_id":   out.RegionID,
				"name":        out.Name,
				"value":       out.Value,
				"lag":         out.Lag,
				"tier":        string(out.Tier),
				"island":      out.Island,
				"store_count": counts[out.RegionID],
			},
		})
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "report: marshal feature collection")
	}
	return data, nil
}
