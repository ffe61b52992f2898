package regress

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// orthogonalFixture is a balanced two-group design whose contrast column is
// orthogonal to the intercept, so every OLS quantity has a closed form:
// beta = (5, 2), RSS = 2, sigma^2 = 1/3, R^2 = 16/17, F = 96.
func orthogonalFixture() (*mat.Dense, []float64) {
	x := mat.NewDense(8, 2, []float64{
		1, -1,
		1, -1,
		1, -1,
		1, -1,
		1, 1,
		1, 1,
		1, 1,
		1, 1,
	})
	y := []float64{3.5, 2.5, 3.5, 2.5, 6.5, 7.5, 6.5, 7.5}
	return x, y
}

func TestFitOLSOrthogonalDesign(t *testing.T) {
	x, y := orthogonalFixture()

	res, err := FitOLS(x, y, nil)
	require.NoError(t, err)

	require.Len(t, res.Coefficients, 2)
	assert.Equal(t, "const", res.Coefficients[0].Name)
	assert.Equal(t, "x1", res.Coefficients[1].Name)
	assert.InDelta(t, 5.0, res.Coefficients[0].Estimate, 1e-10)
	assert.InDelta(t, 2.0, res.Coefficients[1].Estimate, 1e-10)

	se := math.Sqrt(1.0 / 24.0)
	assert.InDelta(t, se, res.Coefficients[0].StdErr, 1e-10)
	assert.InDelta(t, se, res.Coefficients[1].StdErr, 1e-10)
	assert.InDelta(t, 5.0/se, res.Coefficients[0].Stat, 1e-8)
	assert.InDelta(t, 2.0/se, res.Coefficients[1].Stat, 1e-8)
	assert.Less(t, res.Coefficients[0].PValue, 1e-3)
	assert.Less(t, res.Coefficients[1].PValue, 1e-3)

	assert.InDelta(t, 1.0/3.0, res.Sigma2, 1e-10)
	assert.InDelta(t, 16.0/17.0, res.R2, 1e-10)
	assert.InDelta(t, 95.0/102.0, res.AdjR2, 1e-10)
	assert.InDelta(t, 96.0, res.FStat, 1e-8)
	assert.Less(t, res.FPValue, 0.01)
	assert.InDelta(t, -5.806330821157819, res.LogLik, 1e-9)
	assert.InDelta(t, 15.612661642315638, res.AIC, 1e-9)
	assert.Equal(t, 8, res.N)
	assert.Equal(t, 2, res.K)

	require.Len(t, res.Residuals, 8)
	assert.InDelta(t, 0.5, res.Residuals[0], 1e-10)
	assert.InDelta(t, -0.5, res.Residuals[1], 1e-10)
	for i := range y {
		assert.InDelta(t, y[i], res.Fitted[i]+res.Residuals[i], 1e-10)
	}
}

func TestFitOLSNamedCoefficients(t *testing.T) {
	x, y := orthogonalFixture()

	res, err := FitOLS(x, y, []string{"const", "store_density"})
	require.NoError(t, err)
	assert.Equal(t, "store_density", res.Coefficients[1].Name)
}

func TestFitOLSInterceptOnly(t *testing.T) {
	x := mat.NewDense(5, 1, []float64{1, 1, 1, 1, 1})
	y := []float64{2, 4, 6, 8, 10}

	res, err := FitOLS(x, y, nil)
	require.NoError(t, err)

	assert.InDelta(t, 6.0, res.Coefficients[0].Estimate, 1e-10)
	assert.InDelta(t, 0.0, res.R2, 1e-10)
	// No slopes, so no overall F test.
	assert.Zero(t, res.FStat)
	assert.InDelta(t, 1.0, res.FPValue, 1e-12)
}

func TestFitOLSSingularDesign(t *testing.T) {
	// Duplicated contrast column: rank 2 for 3 columns.
	x := mat.NewDense(8, 3, nil)
	base, y := orthogonalFixture()
	for i := 0; i < 8; i++ {
		x.Set(i, 0, base.At(i, 0))
		x.Set(i, 1, base.At(i, 1))
		x.Set(i, 2, base.At(i, 1))
	}

	_, err := FitOLS(x, y, nil)
	assert.ErrorIs(t, err, ErrSingularDesign)
}

func TestFitOLSConstantResponse(t *testing.T) {
	x, _ := orthogonalFixture()
	y := []float64{4, 4, 4, 4, 4, 4, 4, 4}

	_, err := FitOLS(x, y, nil)
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestFitOLSPerfectFit(t *testing.T) {
	x, _ := orthogonalFixture()
	// Exactly 1 + 2*x1: zero residual variance is unusable for inference.
	y := []float64{-1, -1, -1, -1, 3, 3, 3, 3}

	_, err := FitOLS(x, y, nil)
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestFitOLSBadInput(t *testing.T) {
	x, y := orthogonalFixture()

	t.Run("response length", func(t *testing.T) {
		_, err := FitOLS(x, y[:5], nil)
		assert.ErrorIs(t, err, ErrBadInput)
	})

	t.Run("too few rows", func(t *testing.T) {
		small := mat.NewDense(2, 2, []float64{1, 0, 1, 1})
		_, err := FitOLS(small, []float64{1, 2}, nil)
		assert.ErrorIs(t, err, ErrBadInput)
	})

	t.Run("name count", func(t *testing.T) {
		_, err := FitOLS(x, y, []string{"const"})
		assert.ErrorIs(t, err, ErrBadInput)
	})

	t.Run("non-finite response", func(t *testing.T) {
		bad := append([]float64(nil), y...)
		bad[3] = math.NaN()
		_, err := FitOLS(x, bad, nil)
		assert.ErrorIs(t, err, ErrBadInput)
	})

	t.Run("non-finite design", func(t *testing.T) {
		bad := mat.DenseCopyOf(x)
		bad.Set(2, 1, math.Inf(1))
		_, err := FitOLS(bad, y, nil)
		assert.ErrorIs(t, err, ErrBadInput)
	})
}
