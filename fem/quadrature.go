package fem

import (
	"fmt"
	"math"
)

// QuadraturePoint is a point of the reference triangle {ξ ≥ 0, η ≥ 0,
// ξ+η ≤ 1}; weights sum to the reference area 1/2
type QuadraturePoint struct {
	Xi     [2]float64
	Weight float64
}

// LinePoint is a point of [0, 1]; weights sum to 1
type LinePoint struct {
	T      float64
	Weight float64
}

// TriangleRule returns a rule exact for polynomials of the given degree
func TriangleRule(degree int) ([]QuadraturePoint, error) {
	switch degree {
	case 0, 1:
		return []QuadraturePoint{{Xi: [2]float64{1. / 3, 1. / 3}, Weight: 0.5}}, nil
	case 2:
		w := 1. / 6
		return []QuadraturePoint{
			{Xi: [2]float64{1. / 6, 1. / 6}, Weight: w},
			{Xi: [2]float64{2. / 3, 1. / 6}, Weight: w},
			{Xi: [2]float64{1. / 6, 2. / 3}, Weight: w},
		}, nil
	case 3, 4:
		// Dunavant, 6 points
		const (
			a, wa = 0.445948490915965, 0.223381589678011 / 2
			b, wb = 0.091576213509771, 0.109951743655322 / 2
		)
		return []QuadraturePoint{
			{Xi: [2]float64{a, a}, Weight: wa},
			{Xi: [2]float64{1 - 2*a, a}, Weight: wa},
			{Xi: [2]float64{a, 1 - 2*a}, Weight: wa},
			{Xi: [2]float64{b, b}, Weight: wb},
			{Xi: [2]float64{1 - 2*b, b}, Weight: wb},
			{Xi: [2]float64{b, 1 - 2*b}, Weight: wb},
		}, nil
	}
	return nil, fmt.Errorf("%w: triangle degree %d", ErrQuadratureDegree, degree)
}

// LineRule returns the Gauss-Legendre rule with ceil((degree+1)/2) points
func LineRule(degree int) ([]LinePoint, error) {
	var (
		s, w []float64
	)
	switch n := (degree + 2) / 2; {
	case degree < 0:
		return nil, fmt.Errorf("%w: line degree %d", ErrQuadratureDegree, degree)
	case n <= 1:
		s, w = []float64{0}, []float64{2}
	case n == 2:
		r := 1 / math.Sqrt(3)
		s, w = []float64{-r, r}, []float64{1, 1}
	case n == 3:
		r := math.Sqrt(3. / 5)
		s, w = []float64{-r, 0, r}, []float64{5. / 9, 8. / 9, 5. / 9}
	default:
		return nil, fmt.Errorf("%w: line degree %d", ErrQuadratureDegree, degree)
	}
	pts := make([]LinePoint, len(s))
	for i := range s {
		pts[i] = LinePoint{T: (s[i] + 1) / 2, Weight: w[i] / 2}
	}
	return pts, nil
}
