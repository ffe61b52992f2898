// Package spatial builds contiguity-based spatial weights for fixed region
// sets and computes global spatial autocorrelation statistics over them.
// Weights are constructed once per region set and treated as read-only by
// every statistic; all computations are pure functions over immutable inputs.
package spatial

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Contiguity is the boundary-sharing rule for declaring two regions
// neighbors.
type Contiguity int

const (
	// Queen declares regions neighbors when they share an edge or a single
	// boundary vertex.
	Queen Contiguity = iota
	// Rook declares regions neighbors only when they share an edge.
	Rook
)

func (c Contiguity) String() string {
	if c == Rook {
		return "rook"
	}
	return "queen"
}

// ParseContiguity maps a config value to a contiguity rule.
func ParseContiguity(s string) (Contiguity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "queen":
		return Queen, nil
	case "rook":
		return Rook, nil
	}
	return Queen, eris.Errorf("spatial: unknown contiguity rule %q", s)
}

// defaultSnapPrecision is the coordinate quantum used when comparing
// boundary vertices, in the units of the source geometry (degrees for the
// community-area shapefile).
const defaultSnapPrecision = 1e-9

// NeighborOptions controls adjacency construction. The zero value builds
// queen contiguity with the default snap precision.
type NeighborOptions struct {
	Contiguity Contiguity

	// SnapPrecision quantizes coordinates before comparison so boundaries
	// digitized with sub-precision noise still register as shared. Zero
	// means defaultSnapPrecision.
	SnapPrecision float64
}

// NeighborList records, for every region index, the indices of its
// boundary-sharing neighbors. Lists are sorted and symmetric: j appears in
// Neighbors(i) exactly when i appears in Neighbors(j). An empty list marks
// an island, which is a valid state rather than an error.
type NeighborList struct {
	adj [][]int
}

// NewNeighborList builds a neighbor list from raw adjacency data, for
// callers that already hold a neighbor structure. Entries are deduplicated,
// mirrored and sorted; self references and out-of-range indices are
// rejected.
func NewNeighborList(adj [][]int) (*NeighborList, error) {
	n := len(adj)
	if n == 0 {
		return nil, eris.Wrap(ErrEmptyRegions, "new neighbor list")
	}
	cp := make([][]int, n)
	for i, nb := range adj {
		for _, j := range nb {
			if j < 0 || j >= n {
				return nil, eris.Errorf("spatial: neighbor index %d out of range for %d regions", j, n)
			}
			if j == i {
				return nil, eris.Errorf("spatial: region %d listed as its own neighbor", i)
			}
		}
		cp[i] = append([]int(nil), nb...)
	}
	mirror(cp)
	return &NeighborList{adj: cp}, nil
}

// BuildNeighbors derives the contiguity neighbor list for an ordered region
// sequence. Two regions are neighbors when their boundaries share at least
// one quantized vertex (queen) or one quantized edge (rook); all rings,
// exterior and holes, contribute boundary. Enclave or disconnected regions
// keep an empty neighbor set.
func BuildNeighbors(geoms []*geom.MultiPolygon, opts NeighborOptions) (*NeighborList, error) {
	n := len(geoms)
	if n == 0 {
		return nil, eris.Wrap(ErrEmptyRegions, "build neighbors")
	}
	snap := opts.SnapPrecision
	if snap <= 0 {
		snap = defaultSnapPrecision
	}

	bounds := make([]boundary, n)
	for i, g := range geoms {
		bounds[i] = newBoundary(g, snap, opts.Contiguity)
	}

	adj := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !bounds[i].overlaps(&bounds[j], snap) {
				continue
			}
			if bounds[i].touches(&bounds[j], opts.Contiguity) {
				adj[i] = append(adj[i], j)
				adj[j] = append(adj[j], i)
			}
		}
	}

	// Enforce symmetry by explicit mirroring.
	mirror(adj)

	return &NeighborList{adj: adj}, nil
}

// Len returns the number of regions.
func (nl *NeighborList) Len() int { return len(nl.adj) }

// Neighbors returns the sorted neighbor indices of region i. The slice is
// shared; callers must not modify it.
func (nl *NeighborList) Neighbors(i int) []int { return nl.adj[i] }

// Degree returns the neighbor count of region i.
func (nl *NeighborList) Degree(i int) int { return len(nl.adj[i]) }

// Islands returns the indices of regions with no neighbors.
func (nl *NeighborList) Islands() []int {
	var out []int
	for i, nb := range nl.adj {
		if len(nb) == 0 {
			out = append(out, i)
		}
	}
	return out
}

// EdgeCount returns the number of undirected neighbor pairs.
func (nl *NeighborList) EdgeCount() int {
	total := 0
	for _, nb := range nl.adj {
		total += len(nb)
	}
	return total / 2
}

// mirror normalizes adjacency lists in place: union with the transpose,
// drop self references, dedupe, sort.
func mirror(adj [][]int) {
	sets := make([]map[int]struct{}, len(adj))
	for i, nb := range adj {
		sets[i] = make(map[int]struct{}, len(nb))
		for _, j := range nb {
			sets[i][j] = struct{}{}
		}
	}
	for i, nb := range adj {
		for _, j := range nb {
			sets[j][i] = struct{}{}
		}
	}
	for i, set := range sets {
		delete(set, i)
		out := make([]int, 0, len(set))
		for j := range set {
			out = append(out, j)
		}
		sort.Ints(out)
		adj[i] = out
	}
}

// vertexKey is a boundary vertex quantized to the snap grid.
type vertexKey [2]int64

// edgeKey is an undirected quantized edge, endpoints in canonical order.
type edgeKey [2]vertexKey

// boundary holds the quantized boundary structure of one region.
type boundary struct {
	minX, minY float64
	maxX, maxY float64
	verts      map[vertexKey]struct{}
	edges      map[edgeKey]struct{} // populated for rook only
}

func newBoundary(g *geom.MultiPolygon, snap float64, rule Contiguity) boundary {
	b := boundary{
		minX:  math.Inf(1),
		minY:  math.Inf(1),
		maxX:  math.Inf(-1),
		maxY:  math.Inf(-1),
		verts: make(map[vertexKey]struct{}),
	}
	if rule == Rook {
		b.edges = make(map[edgeKey]struct{})
	}
	if g == nil {
		return b
	}
	for p := 0; p < g.NumPolygons(); p++ {
		poly := g.Polygon(p)
		for r := 0; r < poly.NumLinearRings(); r++ {
			b.addRing(poly.LinearRing(r), snap)
		}
	}
	return b
}

func (b *boundary) addRing(ring *geom.LinearRing, snap float64) {
	fc := ring.FlatCoords()
	stride := ring.Stride()
	if stride < 2 {
		return
	}
	var keys []vertexKey
	for i := 0; i+1 < len(fc); i += stride {
		x, y := fc[i], fc[i+1]
		b.minX = math.Min(b.minX, x)
		b.minY = math.Min(b.minY, y)
		b.maxX = math.Max(b.maxX, x)
		b.maxY = math.Max(b.maxY, y)
		keys = append(keys, quantize(x, y, snap))
	}
	// Rings repeat the first vertex at the end; drop the duplicate so the
	// closing edge is not double counted.
	if len(keys) > 1 && keys[0] == keys[len(keys)-1] {
		keys = keys[:len(keys)-1]
	}
	for _, k := range keys {
		b.verts[k] = struct{}{}
	}
	if b.edges == nil || len(keys) < 2 {
		return
	}
	for i := range keys {
		a, c := keys[i], keys[(i+1)%len(keys)]
		if a == c {
			continue
		}
		b.edges[newEdgeKey(a, c)] = struct{}{}
	}
}

func quantize(x, y, snap float64) vertexKey {
	return vertexKey{int64(math.Round(x / snap)), int64(math.Round(y / snap))}
}

func newEdgeKey(a, b vertexKey) edgeKey {
	if b[0] < a[0] || (b[0] == a[0] && b[1] < a[1]) {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// overlaps is the bounding-box prefilter for the pairwise test.
func (b *boundary) overlaps(o *boundary, snap float64) bool {
	return b.minX <= o.maxX+snap && o.minX <= b.maxX+snap &&
		b.minY <= o.maxY+snap && o.minY <= b.maxY+snap
}

func (b *boundary) touches(o *boundary, rule Contiguity) bool {
	if rule == Rook {
		return intersectEdges(b.edges, o.edges)
	}
	return intersectVerts(b.verts, o.verts)
}

func intersectVerts(a, b map[vertexKey]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func intersectEdges(a, b map[edgeKey]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
