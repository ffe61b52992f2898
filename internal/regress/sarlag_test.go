package regress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/spatial"
)

// gridWeights is the row-standardized 3x3 rook lattice.
func gridWeights(t *testing.T) *spatial.Weights {
	t.Helper()
	nl, err := spatial.NewNeighborList([][]int{
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
	return spatial.BuildWeights(nl, spatial.RowStandardized)
}

// isolatedWeights is an all-island weights matrix: W is identically zero.
func isolatedWeights(t *testing.T, n int) *spatial.Weights {
	t.Helper()
	nl, err := spatial.NewNeighborList(make([][]int, n))
	require.NoError(t, err)
	return spatial.BuildWeights(nl, spatial.RowStandardized)
}

// gridFixture is a banded response over the lattice with one covariate.
func gridFixture() (*mat.Dense, []float64) {
	x := mat.NewDense(9, 2, []float64{
		1, 0,
		1, 0,
		1, 0,
		1, 1,
		1, 1,
		1, 1,
		1, 2,
		1, 2,
		1, 2,
	})
	y := []float64{10, 10, 10, 6, 6, 5, 1, 0, 0}
	return x, y
}

func TestFitSpatialLagGrid(t *testing.T) {
	x, y := gridFixture()
	w := gridWeights(t)

	res, err := FitSpatialLag(x, y, []string{"const", "income_band"}, w, LagOptions{})
	require.NoError(t, err)

	require.Len(t, res.Coefficients, 2)
	assert.Equal(t, "income_band", res.Coefficients[1].Name)
	// Row-standardized weights bound the search to (1/lambda_min, 1).
	assert.Greater(t, res.Rho, -1.0)
	assert.Less(t, res.Rho, 1.0)
	assert.Greater(t, res.Sigma2, 0.0)
	assert.Greater(t, res.RhoStdErr, 0.0)
	assert.Greater(t, res.Iterations, 0)
	assert.Equal(t, 9, res.N)
	assert.Equal(t, 2, res.K)
	for j, c := range res.Coefficients {
		assert.Greater(t, c.StdErr, 0.0, "coefficient %d", j)
	}

	require.Len(t, res.Fitted, 9)
	require.Len(t, res.Residuals, 9)
	for i := range y {
		assert.InDelta(t, y[i], res.Fitted[i]+res.Residuals[i], 1e-10)
	}

	// The lag model nests OLS at rho = 0, so its maximized likelihood can
	// never fall below the least-squares one.
	ols, err := FitOLS(x, y, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.LogLik, ols.LogLik-1e-6)
	assert.InDelta(t, -2*res.LogLik+2*3, res.AIC, 1e-10)
}

func TestFitSpatialLagZeroWeightsCollapses(t *testing.T) {
	// With an identically zero W the likelihood is flat in rho; the fit is
	// the plain least-squares one with rho pinned at zero.
	x, y := orthogonalFixture()
	w := isolatedWeights(t, 8)

	res, err := FitSpatialLag(x, y, nil, w, LagOptions{})
	require.NoError(t, err)

	ols, err := FitOLS(x, y, nil)
	require.NoError(t, err)

	assert.Zero(t, res.Rho)
	assert.Zero(t, res.RhoStdErr)
	assert.InDelta(t, 1.0, res.RhoPValue, 1e-12)
	assert.Zero(t, res.Iterations)
	require.Len(t, res.Coefficients, 2)
	assert.InDelta(t, ols.Coefficients[0].Estimate, res.Coefficients[0].Estimate, 1e-12)
	assert.InDelta(t, ols.Coefficients[1].Estimate, res.Coefficients[1].Estimate, 1e-12)
	assert.InDelta(t, ols.LogLik, res.LogLik, 1e-12)
	// Sigma2 is the ML variant RSS/n here, not the OLS RSS/(n-k).
	assert.InDelta(t, 0.25, res.Sigma2, 1e-10)
	assert.InDelta(t, -2*res.LogLik+2*3, res.AIC, 1e-10)
}

func TestFitSpatialLagNoConvergence(t *testing.T) {
	x, y := gridFixture()
	w := gridWeights(t)

	_, err := FitSpatialLag(x, y, nil, w, LagOptions{Tol: 1e-12, MaxIter: 1})
	assert.ErrorIs(t, err, ErrNoConvergence)
}

func TestFitSpatialLagSingularDesign(t *testing.T) {
	w := gridWeights(t)
	base, y := gridFixture()
	x := mat.NewDense(9, 3, nil)
	for i := 0; i < 9; i++ {
		x.Set(i, 0, base.At(i, 0))
		x.Set(i, 1, base.At(i, 1))
		x.Set(i, 2, 2*base.At(i, 1))
	}

	_, err := FitSpatialLag(x, y, nil, w, LagOptions{})
	assert.ErrorIs(t, err, ErrSingularDesign)
}

func TestFitSpatialLagBadWeights(t *testing.T) {
	x, y := gridFixture()

	t.Run("nil weights", func(t *testing.T) {
		_, err := FitSpatialLag(x, y, nil, nil, LagOptions{})
		assert.ErrorIs(t, err, ErrBadInput)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := FitSpatialLag(x, y, nil, isolatedWeights(t, 4), LagOptions{})
		assert.ErrorIs(t, err, ErrBadInput)
	})
}
