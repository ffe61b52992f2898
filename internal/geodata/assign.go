package geodata

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
)

// Assignment summarizes a point-in-polygon pass over a region set.
type Assignment struct {
	// Counts holds the number of points landing in each region, indexed
	// like the regions slice passed to AssignPoints.
	Counts []int
	// Unmatched lists the points that fell outside every region.
	Unmatched []model.StorePoint
}

// AssignPoints fills RegionID on each point with the ID of the region
// containing it, testing containment by the even-odd rule over every ring
// behind a bounding-box precheck. Points are updated in place; points
// outside all regions keep an empty RegionID and are echoed in Unmatched.
// On a shared boundary the first region in slice order wins.
func AssignPoints(regions []model.Region, points []model.StorePoint) Assignment {
	boxes := make([]*geom.Bounds, len(regions))
	for i, r := range regions {
		if r.Geometry != nil {
			boxes[i] = r.Geometry.Bounds()
		}
	}

	out := Assignment{Counts: make([]int, len(regions))}
	for pi := range points {
		c := geom.Coord{points[pi].Lon, points[pi].Lat}
		matched := false
		for ri, r := range regions {
			if boxes[ri] == nil || !boxes[ri].OverlapsPoint(geom.XY, c) {
				continue
			}
			if containsCoord(r.Geometry, c) {
				points[pi].RegionID = r.ID
				out.Counts[ri]++
				matched = true
				break
			}
		}
		if !matched {
			out.Unmatched = append(out.Unmatched, points[pi])
		}
	}

	if len(out.Unmatched) > 0 {
		zap.L().Debug("geodata: points outside all regions",
			zap.Int("unmatched", len(out.Unmatched)),
			zap.Int("total", len(points)),
		)
	}
	return out
}

// containsCoord applies the even-odd rule across all rings of all member
// polygons, so hole rings flip a point back to outside whether they are
// stored as interior rings or as sibling parts.
func containsCoord(g *geom.MultiPolygon, c geom.Coord) bool {
	inside := false
	for p := 0; p < g.NumPolygons(); p++ {
		poly := g.Polygon(p)
		for r := 0; r < poly.NumLinearRings(); r++ {
			if xy.IsPointInRing(geom.XY, c, poly.LinearRing(r).FlatCoords()) {
				inside = !inside
			}
		}
	}
	return inside
}
