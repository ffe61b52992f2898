package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ring4 is the 2x2 rook grid, indexed clockwise so the adjacency is the
// cycle 0-1-2-3-0.
func ring4(t *testing.T) *NeighborList {
	t.Helper()
	nl, err := NewNeighborList([][]int{{1, 3}, {0, 2}, {1, 3}, {0, 2}})
	require.NoError(t, err)
	return nl
}

// grid3 is the 3x3 rook lattice in row-major order.
func grid3(t *testing.T) *NeighborList {
	t.Helper()
	nl, err := NewNeighborList([][]int{
		{1, 3},
		{0, 2, 4},
		{1, 5},
		{0, 4, 6},
		{1, 3, 5, 7},
		{2, 4, 8},
		{3, 7},
		{4, 6, 8},
		{5, 7},
	})
	require.NoError(t, err)
	return nl
}

// ringWithIsland appends a neighbor-less fifth region to ring4.
func ringWithIsland(t *testing.T) *NeighborList {
	t.Helper()
	nl, err := NewNeighborList([][]int{{1, 3}, {0, 2}, {1, 3}, {0, 2}, nil})
	require.NoError(t, err)
	return nl
}

func TestBuildWeightsRowStandardized(t *testing.T) {
	w := BuildWeights(grid3(t), RowStandardized)

	require.Equal(t, 9, w.Len())
	for i := 0; i < w.Len(); i++ {
		_, wts := w.Row(i)
		var sum float64
		for _, v := range wts {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-12, "row %d", i)
	}
	assert.InDelta(t, 9.0, w.S0(), 1e-12)
	assert.False(t, w.HasIslands())
}

func TestBuildWeightsRingSums(t *testing.T) {
	// Closed-form sums for the 4-cycle: every link weighs 1/2, so each
	// symmetrized pair contributes (1/2+1/2)^2 over 8 ordered links, and
	// every region has row sum and column sum 1.
	w := BuildWeights(ring4(t), RowStandardized)

	assert.InDelta(t, 4.0, w.S0(), 1e-12)
	assert.InDelta(t, 4.0, w.S1(), 1e-12)
	assert.InDelta(t, 16.0, w.S2(), 1e-12)
	assert.InDelta(t, 0.5, w.at(0, 1), 1e-12)
	assert.InDelta(t, 0.0, w.at(0, 2), 1e-12)
}

func TestBuildWeightsBinary(t *testing.T) {
	w := BuildWeights(ring4(t), Binary)

	assert.InDelta(t, 8.0, w.S0(), 1e-12)
	assert.InDelta(t, 16.0, w.S1(), 1e-12)
	assert.InDelta(t, 64.0, w.S2(), 1e-12)
	assert.Equal(t, 2, w.Degree(0))
	assert.InDelta(t, 1.0, w.at(0, 1), 1e-12)
}

func TestBuildWeightsIslandRow(t *testing.T) {
	w := BuildWeights(ringWithIsland(t), RowStandardized)

	require.True(t, w.HasIslands())
	assert.Equal(t, []int{4}, w.Islands())
	idx, wts := w.Row(4)
	assert.Empty(t, idx)
	assert.Empty(t, wts)
	assert.Equal(t, 0, w.Degree(4))
	// The island contributes nothing to the weight sums.
	assert.InDelta(t, 4.0, w.S0(), 1e-12)
}

func TestWithoutIslands(t *testing.T) {
	w := BuildWeights(ringWithIsland(t), RowStandardized)
	sub, keep := w.WithoutIslands()

	require.Equal(t, []int{0, 1, 2, 3}, keep)
	require.Equal(t, 4, sub.Len())
	assert.False(t, sub.HasIslands())

	// The submatrix is exactly the island-free ring.
	ring := BuildWeights(ring4(t), RowStandardized)
	assert.InDelta(t, ring.S0(), sub.S0(), 1e-12)
	assert.InDelta(t, ring.S1(), sub.S1(), 1e-12)
	assert.InDelta(t, ring.S2(), sub.S2(), 1e-12)

	// No islands: the receiver comes back unchanged.
	same, mapping := ring.WithoutIslands()
	assert.Same(t, ring, same)
	assert.Nil(t, mapping)
}

func TestWeightsDense(t *testing.T) {
	w := BuildWeights(ring4(t), RowStandardized)
	d := w.Dense()

	r, c := d.Dims()
	require.Equal(t, 4, r)
	require.Equal(t, 4, c)
	assert.InDelta(t, 0.5, d.At(0, 1), 1e-12)
	assert.InDelta(t, 0.5, d.At(0, 3), 1e-12)
	assert.InDelta(t, 0.0, d.At(0, 2), 1e-12)
	assert.InDelta(t, 0.0, d.At(0, 0), 1e-12)
}

func TestParseWeightStyle(t *testing.T) {
	got, err := ParseWeightStyle("row")
	require.NoError(t, err)
	assert.Equal(t, RowStandardized, got)

	got, err = ParseWeightStyle("BINARY")
	require.NoError(t, err)
	assert.Equal(t, Binary, got)

	_, err = ParseWeightStyle("knn")
	assert.Error(t, err)
}
