package spatial

import "github.com/rotisserie/eris"

// Lag computes the spatially lagged vector lag[i] = sum_j W[i][j]*values[j].
// Under row-standardized weights this is the neighbor average; under binary
// weights the neighbor sum. Island rows produce 0 by convention: the value
// states "no neighborhood", not a measured average, and consumers must read
// it that way.
func (w *Weights) Lag(values []float64) ([]float64, error) {
	if err := checkVector(w.Len(), values); err != nil {
		return nil, eris.Wrap(err, "spatial lag")
	}
	out := make([]float64, w.Len())
	for i := range w.idx {
		var sum float64
		for k, j := range w.idx[i] {
			sum += w.wts[i][k] * values[j]
		}
		out[i] = sum
	}
	return out, nil
}

// crossProduct computes sum_i sum_j W[i][j]*z[i]*z[j] for a centered vector.
func (w *Weights) crossProduct(z []float64) float64 {
	var total float64
	for i := range w.idx {
		zi := z[i]
		for k, j := range w.idx[i] {
			total += w.wts[i][k] * zi * z[j]
		}
	}
	return total
}

// center returns values minus their mean and the centered sum of squares.
func center(values []float64) ([]float64, float64) {
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	z := make([]float64, len(values))
	var ss float64
	for i, v := range values {
		z[i] = v - mean
		ss += z[i] * z[i]
	}
	return z, ss
}
