package spatial

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
)

// WeightStyle selects how neighbor links are weighted.
type WeightStyle int

const (
	// RowStandardized scales each region's weights to sum to one, making the
	// spatial lag a neighbor average.
	RowStandardized WeightStyle = iota
	// Binary keeps unit weights, making the spatial lag a neighbor sum.
	Binary
)

func (s WeightStyle) String() string {
	if s == Binary {
		return "binary"
	}
	return "row"
}

// ParseWeightStyle maps a config value to a weighting style.
func ParseWeightStyle(s string) (WeightStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "row", "row-standardized":
		return RowStandardized, nil
	case "binary":
		return Binary, nil
	}
	return RowStandardized, eris.Errorf("spatial: unknown weight style %q", s)
}

// Weights is a sparse row-form spatial weights matrix with a zero diagonal.
// Island rows are all zero rather than NaN; consumers that divide by row
// sums must special-case them. A Weights is built once per region set and
// read-only afterwards.
type Weights struct {
	style   WeightStyle
	idx     [][]int
	wts     [][]float64
	degrees []int
	islands []int

	s0 float64 // sum of all weights
	s1 float64 // half the sum over all pairs of (w_ij + w_ji)^2
	s2 float64 // sum over regions of (row sum + column sum)^2
}

// BuildWeights turns a neighbor list into a weights matrix in the given
// style.
func BuildWeights(nl *NeighborList, style WeightStyle) *Weights {
	n := nl.Len()
	w := &Weights{
		style:   style,
		idx:     make([][]int, n),
		wts:     make([][]float64, n),
		degrees: make([]int, n),
	}
	for i := 0; i < n; i++ {
		nb := nl.Neighbors(i)
		w.degrees[i] = len(nb)
		if len(nb) == 0 {
			w.islands = append(w.islands, i)
			continue
		}
		weight := 1.0
		if style == RowStandardized {
			weight = 1.0 / float64(len(nb))
		}
		w.idx[i] = append([]int(nil), nb...)
		row := make([]float64, len(nb))
		for k := range row {
			row[k] = weight
		}
		w.wts[i] = row
	}
	w.computeSums()
	return w
}

// computeSums fills S0, S1 and S2, the weight totals entering the
// randomization variance of Moran's I.
func (w *Weights) computeSums() {
	n := len(w.idx)
	rowSums := make([]float64, n)
	colSums := make([]float64, n)
	w.s0, w.s1, w.s2 = 0, 0, 0
	for i := 0; i < n; i++ {
		for k, j := range w.idx[i] {
			v := w.wts[i][k]
			w.s0 += v
			rowSums[i] += v
			colSums[j] += v
		}
	}
	for i := 0; i < n; i++ {
		for k, j := range w.idx[i] {
			s := w.wts[i][k] + w.at(j, i)
			w.s1 += s * s
		}
	}
	w.s1 /= 2
	for i := 0; i < n; i++ {
		t := rowSums[i] + colSums[i]
		w.s2 += t * t
	}
}

// at returns W[i][j], zero when j is not a neighbor of i.
func (w *Weights) at(i, j int) float64 {
	row := w.idx[i]
	k := sort.SearchInts(row, j)
	if k < len(row) && row[k] == j {
		return w.wts[i][k]
	}
	return 0
}

// Len returns the matrix dimension.
func (w *Weights) Len() int { return len(w.idx) }

// Style returns the weighting style.
func (w *Weights) Style() WeightStyle { return w.style }

// S0 returns the sum of all weights.
func (w *Weights) S0() float64 { return w.s0 }

// S1 returns half the sum of squared symmetrized weights.
func (w *Weights) S1() float64 { return w.s1 }

// S2 returns the sum of squared combined row and column sums.
func (w *Weights) S2() float64 { return w.s2 }

// Degree returns the neighbor count of region i.
func (w *Weights) Degree(i int) int { return w.degrees[i] }

// Islands returns the indices of zero-neighbor regions.
func (w *Weights) Islands() []int { return append([]int(nil), w.islands...) }

// HasIslands reports whether any region has no neighbors.
func (w *Weights) HasIslands() bool { return len(w.islands) > 0 }

// Row returns the neighbor indices and weights of region i. The slices are
// shared; callers must not modify them.
func (w *Weights) Row(i int) ([]int, []float64) { return w.idx[i], w.wts[i] }

// Dense expands the matrix to an n by n dense form for the eigensolver.
func (w *Weights) Dense() *mat.Dense {
	n := len(w.idx)
	d := mat.NewDense(n, n, nil)
	for i := range w.idx {
		for k, j := range w.idx[i] {
			d.Set(i, j, w.wts[i][k])
		}
	}
	return d
}

// WithoutIslands returns a copy with island regions removed, plus the
// mapping keep[newIndex] = oldIndex. Islands never appear in another
// region's neighbor set, so surviving rows keep their weights unchanged.
// When there are no islands the receiver itself is returned with a nil
// mapping.
func (w *Weights) WithoutIslands() (*Weights, []int) {
	if len(w.islands) == 0 {
		return w, nil
	}
	n := len(w.idx)
	keep := make([]int, 0, n-len(w.islands))
	remap := make([]int, n)
	for i := 0; i < n; i++ {
		if w.degrees[i] > 0 {
			remap[i] = len(keep)
			keep = append(keep, i)
		} else {
			remap[i] = -1
		}
	}
	sub := &Weights{
		style:   w.style,
		idx:     make([][]int, 0, len(keep)),
		wts:     make([][]float64, 0, len(keep)),
		degrees: make([]int, 0, len(keep)),
	}
	for _, old := range keep {
		row := make([]int, len(w.idx[old]))
		for k, j := range w.idx[old] {
			row[k] = remap[j]
		}
		sub.idx = append(sub.idx, row)
		sub.wts = append(sub.wts, append([]float64(nil), w.wts[old]...))
		sub.degrees = append(sub.degrees, w.degrees[old])
	}
	sub.computeSums()
	return sub, keep
}

// applyIslandPolicy returns the weights and vector the statistic should run
// on after resolving the island policy. The vector is re-sliced to the
// surviving indices when islands are excluded.
func applyIslandPolicy(w *Weights, values []float64, policy IslandPolicy) (*Weights, []float64) {
	if policy != ExcludeIslands || !w.HasIslands() {
		return w, values
	}
	sub, keep := w.WithoutIslands()
	vv := make([]float64, len(keep))
	for k, old := range keep {
		vv[k] = values[old]
	}
	return sub, vv
}
