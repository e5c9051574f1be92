package fusion

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrFit marks a spatial surface that could not be constructed for one
// sensor type. FuseSpatial logs it and omits the type; it never propagates.
var ErrFit = errors.New("spatial surface fit failed")

// rbfSmoothing scales the per-point ridge damping derived from quality.
// A quality-1.0 point gets no damping and is interpolated exactly; lower
// quality points are smoothed over rather than honored exactly.
const rbfSmoothing = 0.1

// rbfQualityFloor keeps the damping term finite for zero-quality points.
const rbfQualityFloor = 1e-3

// rbfSurface is a multiquadric radial-basis-function surface fitted through
// scattered (lat, lng, value) points.
type rbfSurface struct {
	lats    []float64
	lngs    []float64
	coeffs  []float64
	epsilon float64
}

// fitRBF solves the RBF collocation system A·c = v, where
// A[i][j] = multiquadric(dist(i,j)) plus quality-derived ridge damping on
// the diagonal. The shape parameter epsilon is the mean pairwise distance
// between points.
func fitRBF(lats, lngs, values, qualities []float64) (*rbfSurface, error) {
	n := len(lats)

	epsilon := meanPairwiseDistance(lats, lngs)
	if epsilon == 0 {
		return nil, fmt.Errorf("%w: all points coincide", ErrFit)
	}

	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			r := math.Hypot(lats[i]-lats[j], lngs[i]-lngs[j])
			a.Set(i, j, multiquadric(r, epsilon))
		}
		q := math.Max(qualities[i], rbfQualityFloor)
		a.Set(i, i, a.At(i, i)+(1/q-1)*rbfSmoothing)
	}

	var c mat.VecDense
	if err := c.SolveVec(a, mat.NewVecDense(n, values)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFit, err)
	}

	return &rbfSurface{
		lats:    lats,
		lngs:    lngs,
		coeffs:  c.RawVector().Data,
		epsilon: epsilon,
	}, nil
}

func (s *rbfSurface) eval(lat, lng float64) float64 {
	var sum float64
	for i := range s.coeffs {
		r := math.Hypot(lat-s.lats[i], lng-s.lngs[i])
		sum += s.coeffs[i] * multiquadric(r, s.epsilon)
	}
	return sum
}

// multiquadric is the kernel sqrt((r/epsilon)^2 + 1).
func multiquadric(r, epsilon float64) float64 {
	return math.Sqrt((r/epsilon)*(r/epsilon) + 1)
}

func meanPairwiseDistance(lats, lngs []float64) float64 {
	n := len(lats)
	if n < 2 {
		return 0
	}
	var sum float64
	var count int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += math.Hypot(lats[i]-lats[j], lngs[i]-lngs[j])
			count++
		}
	}
	return sum / float64(count)
}
