package fem

import (
	"fmt"
	"math"
)

// Sample is a refined triangulation for output. Every element gets its own
// n*(n+1)/2 points, n per edge, so points on shared edges are repeated.
type Sample struct {
	Tri  [][3]int
	X    [][2]float64
	Elem []int        // Element of each point
	Xi   [][2]float64 // Reference coordinates of each point
}

// NewSample refines every element with n points per edge, n >= 2
func NewSample(d *Domain, n int) (*Sample, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: sample refinement %d", ErrDimension, n)
	}
	var (
		nLocal = n * (n + 1) / 2
		nTri   = (n - 1) * (n - 1)
		s      = &Sample{
			Tri:  make([][3]int, 0, nTri*len(d.Tri)),
			X:    make([][2]float64, 0, nLocal*len(d.Tri)),
			Elem: make([]int, 0, nLocal*len(d.Tri)),
			Xi:   make([][2]float64, 0, nLocal*len(d.Tri)),
		}
		index = make([][]int, n)
	)
	for k := range d.Tri {
		for j := 0; j < n; j++ {
			index[j] = index[j][:0]
			for i := 0; i+j < n; i++ {
				xi := [2]float64{float64(i) / float64(n-1), float64(j) / float64(n-1)}
				index[j] = append(index[j], len(s.X))
				s.X = append(s.X, d.MapToPhysical(k, xi))
				s.Elem = append(s.Elem, k)
				s.Xi = append(s.Xi, xi)
			}
		}
		for j := 0; j < n-1; j++ {
			for i := 0; i+j < n-1; i++ {
				s.Tri = append(s.Tri, [3]int{index[j][i], index[j][i+1], index[j+1][i]})
				if i+j < n-2 {
					s.Tri = append(s.Tri, [3]int{index[j][i+1], index[j+1][i+1], index[j+1][i]})
				}
			}
		}
	}
	return s, nil
}

func (s *Sample) NumPoints() int { return len(s.X) }

// Eval interpolates the coefficients lhs at every sample point
func (s *Sample) Eval(b *Basis, lhs []float64) []float64 {
	return s.EvalFunc(b, lhs, nil)
}

// EvalFunc applies f to the interpolated value at every sample point; a nil
// f is the identity
func (s *Sample) EvalFunc(b *Basis, lhs []float64, f func(u float64) float64) (v []float64) {
	v = make([]float64, len(s.X))
	for p := range s.X {
		u := b.Interpolate(lhs, s.Elem[p], s.Xi[p])
		if f != nil {
			u = f(u)
		}
		v[p] = u
	}
	return
}

// Bounds returns the bounding box of the sample points
func (s *Sample) Bounds() (min, max [2]float64) {
	min = [2]float64{math.Inf(1), math.Inf(1)}
	max = [2]float64{math.Inf(-1), math.Inf(-1)}
	for _, x := range s.X {
		for c := 0; c < 2; c++ {
			min[c] = math.Min(min[c], x[c])
			max[c] = math.Max(max[c], x[c])
		}
	}
	return
}
