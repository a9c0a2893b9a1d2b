package fem

import (
	"fmt"
	"math"
)

var nan = math.NaN()

// Constraint holds one value per DOF; NaN marks a free DOF
type Constraint []float64

func NewConstraint(n int) (c Constraint) {
	c = make(Constraint, n)
	for i := range c {
		c[i] = nan
	}
	return
}

func (c Constraint) IsFixed(i int) bool { return !math.IsNaN(c[i]) }

// Free returns the unconstrained DOFs in increasing order
func (c Constraint) Free() (idx []int) {
	for i, v := range c {
		if math.IsNaN(v) {
			idx = append(idx, i)
		}
	}
	return
}

// Fixed returns the constrained DOFs in increasing order
func (c Constraint) Fixed() (idx []int) {
	for i, v := range c {
		if !math.IsNaN(v) {
			idx = append(idx, i)
		}
	}
	return
}

// Merge overlays the fixed values of other; other wins where both are fixed
func (c Constraint) Merge(other Constraint) (Constraint, error) {
	if len(c) != len(other) {
		return nil, fmt.Errorf("%w: merging constraints of length %d and %d", ErrDimension, len(c), len(other))
	}
	out := append(Constraint(nil), c...)
	for i, v := range other {
		if !math.IsNaN(v) {
			out[i] = v
		}
	}
	return out, nil
}

// Apply returns a copy of lhs with the constrained values imposed
func (c Constraint) Apply(lhs []float64) ([]float64, error) {
	if len(c) != len(lhs) {
		return nil, fmt.Errorf("%w: constraint of length %d on %d coefficients", ErrDimension, len(c), len(lhs))
	}
	out := append([]float64(nil), lhs...)
	for i, v := range c {
		if !math.IsNaN(v) {
			out[i] = v
		}
	}
	return out, nil
}
