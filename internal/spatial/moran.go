package spatial

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat/distuv"
)

// Alternative selects the tail of a significance test.
type Alternative int

const (
	// Greater tests for positive spatial autocorrelation (clustering).
	Greater Alternative = iota
	// Less tests for negative spatial autocorrelation (dispersion).
	Less
	// TwoSided tests for autocorrelation in either direction.
	TwoSided
)

func (a Alternative) String() string {
	switch a {
	case Less:
		return "less"
	case TwoSided:
		return "two-sided"
	default:
		return "greater"
	}
}

// ParseAlternative maps a config value to a test alternative.
func ParseAlternative(s string) (Alternative, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "greater":
		return Greater, nil
	case "less":
		return Less, nil
	case "two-sided", "two_sided", "twosided":
		return TwoSided, nil
	}
	return Greater, eris.Errorf("spatial: unknown alternative %q", s)
}

// MarshalText encodes the alternative as its config string.
func (a Alternative) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText parses an alternative from its config string.
func (a *Alternative) UnmarshalText(text []byte) error {
	v, err := ParseAlternative(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// IslandPolicy selects how zero-neighbor regions enter a statistic.
type IslandPolicy int

const (
	// IncludeIslands keeps islands in the vector; their all-zero weight rows
	// contribute nothing to the cross product.
	IncludeIslands IslandPolicy = iota
	// ExcludeIslands drops island regions from the vector and the weights
	// before computing, shrinking n.
	ExcludeIslands
)

func (p IslandPolicy) String() string {
	if p == ExcludeIslands {
		return "exclude"
	}
	return "include"
}

// ParseIslandPolicy maps a config value to an island policy.
func ParseIslandPolicy(s string) (IslandPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "include":
		return IncludeIslands, nil
	case "exclude":
		return ExcludeIslands, nil
	}
	return IncludeIslands, eris.Errorf("spatial: unknown island policy %q", s)
}

// MoranOptions configures MoransI. The zero value tests the "greater"
// alternative with islands included.
type MoranOptions struct {
	Alternative Alternative
	Islands     IslandPolicy
}

// MoranResult carries global Moran's I with its moments under the
// randomization assumption.
type MoranResult struct {
	I           float64     `json:"i"`
	Expected    float64     `json:"expected"` // -1/(n-1)
	Variance    float64     `json:"variance"`
	ZScore      float64     `json:"z_score"`
	PValue      float64     `json:"p_value"`
	N           int         `json:"n"` // regions entering the statistic after the island policy
	Alternative Alternative `json:"alternative"`
}

// MoransI computes global Moran's I for a region-aligned attribute vector:
//
//	I = (n/S0) * sum_ij W[i][j](x_i-mean)(x_j-mean) / sum_i (x_i-mean)^2
//
// together with its expectation, the Cliff-Ord closed-form variance under
// the randomization assumption (including the kurtosis term), the z-score
// and the matching normal-approximation p-value. A constant vector is a
// degenerate input and reported as such, never as NaN.
func MoransI(w *Weights, values []float64, opts MoranOptions) (*MoranResult, error) {
	if err := checkVector(w.Len(), values); err != nil {
		return nil, eris.Wrap(err, "morans i")
	}
	w, values = applyIslandPolicy(w, values, opts.Islands)

	n := w.Len()
	if n == 0 || w.S0() == 0 {
		return nil, eris.Wrap(ErrAllIslands, "morans i")
	}
	if n < 4 {
		return nil, eris.Wrapf(ErrTooFewRegions, "have %d", n)
	}

	z, ss := center(values)
	if ss == 0 {
		return nil, eris.Wrap(ErrDegenerateInput, "morans i")
	}

	nf := float64(n)
	obs := (nf / w.S0()) * w.crossProduct(z) / ss
	expected := -1.0 / (nf - 1)

	// b2 is the fourth standardized moment of the sample, n*m4/m2^2.
	var m4 float64
	for _, v := range z {
		m4 += v * v * v * v
	}
	b2 := nf * m4 / (ss * ss)

	s0, s1, s2 := w.S0(), w.S1(), w.S2()
	s0sq := s0 * s0
	a := nf * ((nf*nf-3*nf+3)*s1 - nf*s2 + 3*s0sq)
	b := b2 * ((nf*nf-nf)*s1 - 2*nf*s2 + 6*s0sq)
	c := (nf - 1) * (nf - 2) * (nf - 3) * s0sq
	variance := (a-b)/c - expected*expected
	if variance <= 0 || math.IsNaN(variance) {
		return nil, eris.Wrap(ErrDegenerateInput, "morans i: non-positive randomization variance")
	}

	zscore := (obs - expected) / math.Sqrt(variance)

	return &MoranResult{
		I:           obs,
		Expected:    expected,
		Variance:    variance,
		ZScore:      zscore,
		PValue:      normalP(zscore, opts.Alternative),
		N:           n,
		Alternative: opts.Alternative,
	}, nil
}

// normalP returns the standard normal tail probability for the alternative.
func normalP(z float64, alt Alternative) float64 {
	switch alt {
	case Less:
		return distuv.UnitNormal.CDF(z)
	case TwoSided:
		return math.Min(1, 2*distuv.UnitNormal.Survival(math.Abs(z)))
	default:
		return distuv.UnitNormal.Survival(z)
	}
}
