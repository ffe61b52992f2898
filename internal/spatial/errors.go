package spatial

import (
	"math"

	"github.com/rotisserie/eris"
)

// Sentinel errors for the statistics in this package. Callers inspect them
// with eris.Is. Input errors mean the caller's data cannot enter the
// computation; structural errors mean the region graph itself cannot support
// the statistic.
var (
	// ErrEmptyRegions is returned when a region set has no members.
	ErrEmptyRegions = eris.New("spatial: empty region set")

	// ErrDimensionMismatch is returned when an attribute vector's length does
	// not match the weights matrix dimension.
	ErrDimensionMismatch = eris.New("spatial: vector length does not match region count")

	// ErrNonFinite is returned when an attribute vector contains NaN or Inf.
	ErrNonFinite = eris.New("spatial: vector contains non-finite values")

	// ErrDegenerateInput is returned when an attribute vector is constant, so
	// the statistic's denominator is zero and the value is undefined.
	ErrDegenerateInput = eris.New("spatial: attribute vector is constant")

	// ErrTooFewRegions is returned when randomization inference is requested
	// for fewer than four regions; the variance formula is undefined below
	// that.
	ErrTooFewRegions = eris.New("spatial: need at least 4 regions for randomization inference")

	// ErrAllIslands is returned when every region has an empty neighbor set,
	// leaving an all-zero weights matrix and an undefined statistic.
	ErrAllIslands = eris.New("spatial: all regions are islands, weights sum to zero")
)

// checkVector validates that values aligns with an n-region weights matrix
// and contains only finite entries.
func checkVector(n int, values []float64) error {
	if len(values) != n {
		return eris.Wrapf(ErrDimensionMismatch, "got %d values for %d regions", len(values), n)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return eris.Wrapf(ErrNonFinite, "value at region index %d", i)
		}
	}
	return nil
}
