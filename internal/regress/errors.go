package regress

import "github.com/rotisserie/eris"

// Sentinel errors for the model fitters, inspectable with eris.Is.
var (
	// ErrBadInput is returned for malformed estimation input: dimension
	// mismatches, non-finite entries, too few observations, or a response
	// with no variation left to explain.
	ErrBadInput = eris.New("regress: invalid estimation input")

	// ErrSingularDesign is returned when the design matrix is rank
	// deficient, i.e. covariates are perfectly collinear. The fit is
	// refused rather than silently resolved to one of the infinite
	// solutions.
	ErrSingularDesign = eris.New("regress: singular design matrix")

	// ErrNoConvergence is returned when the likelihood optimizer exhausts
	// its iteration budget before the bracket reaches tolerance.
	ErrNoConvergence = eris.New("regress: optimizer failed to converge")

	// ErrHessian is returned when the information matrix at the optimum is
	// not invertible or yields non-positive coefficient variances.
	ErrHessian = eris.New("regress: information matrix is not positive definite")

	// ErrEigen is returned when the eigendecomposition of the spatial
	// weights matrix fails or its spectrum cannot bracket a search interval.
	ErrEigen = eris.New("regress: weights eigendecomposition failed")
)
