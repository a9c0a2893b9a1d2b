package fem

import (
	"fmt"

	"github.com/injectionflow/platedist/utils"
)

// Region selects where a projection integrates: the whole domain, or the
// boundary edges with a label
type Region struct {
	Boundary string
}

var WholeDomain = Region{}

func OnBoundary(label string) Region { return Region{Boundary: label} }

func (r Region) String() string {
	if r.Boundary == "" {
		return "domain"
	}
	return "boundary " + r.Boundary
}

// Optimize returns the coefficients minimizing ∫_region (u - target)^2.
// DOFs whose mass matrix row has no entry above droptol do not contribute
// and are left NaN, so the result doubles as a constraint.
func Optimize(b *Basis, region Region, target float64, degree int, droptol float64) (Constraint, error) {
	var (
		M   utils.CSR
		rhs []float64
		err error
	)
	if region.Boundary == "" {
		M, rhs, err = MassMatrix(b, target, degree)
	} else {
		var edges []Edge
		if edges, err = b.Domain.Boundary(region.Boundary); err != nil {
			return nil, err
		}
		M, rhs, err = BoundaryMassMatrix(b, edges, target, degree)
	}
	if err != nil {
		return nil, err
	}

	var (
		c      = NewConstraint(b.Len())
		rowMax = M.RowMaxAbs()
		active []int
	)
	for i, v := range rowMax {
		if v > droptol {
			active = append(active, i)
		}
	}
	if len(active) == 0 {
		return c, nil
	}
	var (
		Ma = M.Submatrix(active)
		ba = make([]float64, len(active))
	)
	for k, i := range active {
		ba[k] = rhs[i]
	}
	x, err := minimizeQuadratic(Ma, ba)
	if err != nil {
		return nil, fmt.Errorf("projection onto %s: %w", region, err)
	}
	for k, i := range active {
		c[i] = x[k]
	}
	return c, nil
}

// minimizeQuadratic minimizes x·Mx - 2b·x for symmetric positive definite
// M by solving M x = b with CG, starting from the lumped mass solution
func minimizeQuadratic(M utils.CSR, b []float64) ([]float64, error) {
	var (
		n    = len(b)
		ones = make([]float64, n)
		lump = make([]float64, n)
		x0   = make([]float64, n)
	)
	for i := range ones {
		ones[i] = 1
	}
	M.MulVec(lump, ones)
	for i := range x0 {
		if lump[i] <= 0 {
			return nil, fmt.Errorf("%w: non-positive lumped mass in row %d", ErrSingularSystem, i)
		}
		x0[i] = b[i] / lump[i]
	}
	return CGSolver{Tolerance: 1e-13}.SolveFrom(M, b, x0)
}
