package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLagRowStandardized(t *testing.T) {
	w := BuildWeights(ring4(t), RowStandardized)

	lag, err := w.Lag([]float64{10, 0, 10, 0})
	require.NoError(t, err)
	// Each region averages its two ring neighbors.
	assert.InDeltaSlice(t, []float64{0, 10, 0, 10}, lag, 1e-12)
}

func TestLagConstantVector(t *testing.T) {
	w := BuildWeights(grid3(t), RowStandardized)

	vals := make([]float64, 9)
	for i := range vals {
		vals[i] = 7.5
	}
	lag, err := w.Lag(vals)
	require.NoError(t, err)
	for i, v := range lag {
		assert.InDelta(t, 7.5, v, 1e-12, "region %d", i)
	}
}

func TestLagBinarySums(t *testing.T) {
	w := BuildWeights(ring4(t), Binary)

	lag, err := w.Lag([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{6, 4, 6, 4}, lag, 1e-12)
}

func TestLagIslandZero(t *testing.T) {
	w := BuildWeights(ringWithIsland(t), RowStandardized)

	lag, err := w.Lag([]float64{1, 2, 3, 4, 100})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, lag[4], 1e-12)
}

func TestLagBadInput(t *testing.T) {
	w := BuildWeights(ring4(t), RowStandardized)

	_, err := w.Lag([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = w.Lag([]float64{1, 2, math.NaN(), 4})
	assert.ErrorIs(t, err, ErrNonFinite)

	_, err = w.Lag([]float64{1, 2, math.Inf(1), 4})
	assert.ErrorIs(t, err, ErrNonFinite)
}
