package fem

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/exp/linsolve"
	"gonum.org/v1/gonum/mat"

	"github.com/injectionflow/platedist/utils"
)

// LinearSolver solves A x = b
type LinearSolver interface {
	Solve(A utils.CSR, b []float64) ([]float64, error)
}

// DenseSolver factors A with partial pivoting LU
type DenseSolver struct {
	// Systems with a condition estimate above MaxCondition are rejected
	MaxCondition float64
}

func (s DenseSolver) Solve(A utils.CSR, b []float64) ([]float64, error) {
	n, _ := A.Dims()
	if n == 0 {
		return nil, nil
	}
	var lu mat.LU
	lu.Factorize(A.ToDense())
	maxCond := s.MaxCondition
	if maxCond == 0 {
		maxCond = 1e16
	}
	if c := lu.Cond(); math.IsInf(c, 1) || c > maxCond {
		return nil, fmt.Errorf("%w: %s condition estimate %g", ErrSingularSystem, A.Name(), c)
	}
	x := mat.NewVecDense(n, nil)
	if err := lu.SolveVecTo(x, false, mat.NewVecDense(n, append([]float64(nil), b...))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularSystem, err)
	}
	return x.RawVector().Data, nil
}

// ILU0 is the incomplete LU factorization of a CSR matrix on its own
// sparsity pattern; L has a unit diagonal
type ILU0 struct {
	indptr, ind []int
	val         []float64
	diag        []int
}

func NewILU0(A utils.CSR) (*ILU0, error) {
	var (
		raw = A.RawMatrix()
		n   = raw.I
		f   = &ILU0{
			indptr: raw.Indptr,
			ind:    raw.Ind,
			val:    append([]float64(nil), raw.Data...),
			diag:   make([]int, n),
		}
		iw = make([]int, n)
	)
	for i := range iw {
		iw[i] = -1
	}
	for i := 0; i < n; i++ {
		f.diag[i] = -1
		for p := f.indptr[i]; p < f.indptr[i+1]; p++ {
			if f.ind[p] == i {
				f.diag[i] = p
			}
		}
		if f.diag[i] < 0 {
			return nil, fmt.Errorf("%w: no diagonal entry in row %d", ErrSingularSystem, i)
		}
	}
	for i := 0; i < n; i++ {
		lo, hi := f.indptr[i], f.indptr[i+1]
		for p := lo; p < hi; p++ {
			iw[f.ind[p]] = p
		}
		for p := lo; p < hi && f.ind[p] < i; p++ {
			k := f.ind[p]
			pivot := f.val[f.diag[k]]
			if pivot == 0 {
				return nil, fmt.Errorf("%w: zero pivot in row %d", ErrSingularSystem, k)
			}
			lik := f.val[p] / pivot
			f.val[p] = lik
			for q := f.diag[k] + 1; q < f.indptr[k+1]; q++ {
				if pos := iw[f.ind[q]]; pos >= 0 {
					f.val[pos] -= lik * f.val[q]
				}
			}
		}
		for p := lo; p < hi; p++ {
			iw[f.ind[p]] = -1
		}
		if f.val[f.diag[i]] == 0 {
			return nil, fmt.Errorf("%w: zero pivot in row %d", ErrSingularSystem, i)
		}
	}
	return f, nil
}

// PreconSolve solves L U dst = rhs for linsolve; the transposed solve is
// not needed by GMRES and is rejected
func (f *ILU0) PreconSolve(dst *mat.VecDense, trans bool, rhs mat.Vector) error {
	if trans {
		return errors.New("fem: transposed ILU(0) solve")
	}
	n := len(f.diag)
	r := make([]float64, n)
	for i := range r {
		r[i] = rhs.AtVec(i)
	}
	z := make([]float64, n)
	f.Apply(z, r)
	for i, v := range z {
		dst.SetVec(i, v)
	}
	return nil
}

// Apply solves L U z = r
func (f *ILU0) Apply(z, r []float64) {
	n := len(f.diag)
	for i := 0; i < n; i++ {
		sum := r[i]
		for p := f.indptr[i]; p < f.diag[i]; p++ {
			sum -= f.val[p] * z[f.ind[p]]
		}
		z[i] = sum
	}
	for i := n - 1; i >= 0; i-- {
		sum := z[i]
		for p := f.diag[i] + 1; p < f.indptr[i+1]; p++ {
			sum -= f.val[p] * z[f.ind[p]]
		}
		z[i] = sum / f.val[f.diag[i]]
	}
}

// GMRESSolver is restarted GMRES, left preconditioned with ILU(0).
// Preconditioned GMRES measures the preconditioned residual, so the solve
// is repeated from its last iterate until the true residual meets Tolerance.
type GMRESSolver struct {
	Restart       int
	MaxIterations int     // Restart cycles per pass
	Tolerance     float64 // Relative to |b|
}

// gmresPasses bounds the restarts driven by the true residual check
const gmresPasses = 8

func (s GMRESSolver) Solve(A utils.CSR, b []float64) ([]float64, error) {
	var (
		n, _    = A.Dims()
		m       = s.Restart
		maxIter = s.MaxIterations
		tol     = s.Tolerance
	)
	if n == 0 {
		return nil, nil
	}
	if m <= 0 {
		m = 50
	}
	if m > n {
		m = n
	}
	if maxIter <= 0 {
		maxIter = 2*n/m + 10
	}
	if tol <= 0 {
		tol = 1e-12
	}
	rhs, bnorm := unitRHS(b)
	if bnorm == 0 {
		return make([]float64, n), nil
	}
	M, err := NewILU0(A)
	if err != nil {
		return nil, err
	}
	var (
		x     = mat.NewVecDense(n, nil)
		r     = mat.NewVecDense(n, nil)
		rnorm float64
	)
	for pass := 0; pass < gmresPasses; pass++ {
		res, err := linsolve.Iterative(A, rhs, &linsolve.GMRES{Restart: m}, &linsolve.Settings{
			InitX:         x,
			Tolerance:     tol,
			MaxIterations: maxIter,
			PreconSolve:   M.PreconSolve,
		})
		if err != nil {
			return nil, iterativeError("GMRES", err)
		}
		x = res.X
		A.MulVecTo(r, false, x)
		r.SubVec(rhs, r)
		if rnorm = mat.Norm(r, 2); rnorm <= tol {
			x.ScaleVec(bnorm, x)
			return x.RawVector().Data, nil
		}
	}
	return nil, fmt.Errorf("%w: GMRES residual %g after %d passes", ErrNotConverged, rnorm, gmresPasses)
}

// unitRHS returns b scaled to unit norm, and its norm. linsolve stops
// before iterating when the initial residual is below Tolerance in
// absolute terms, so solves run on the normalized system.
func unitRHS(b []float64) (rhs *mat.VecDense, bnorm float64) {
	rhs = mat.NewVecDense(len(b), append([]float64(nil), b...))
	if bnorm = mat.Norm(rhs, 2); bnorm > 0 {
		rhs.ScaleVec(1/bnorm, rhs)
	}
	return
}

// CGSolver is Jacobi preconditioned conjugate gradients, for symmetric
// positive definite systems such as mass matrices
type CGSolver struct {
	MaxIterations int
	Tolerance     float64 // Relative to |b|
}

func (s CGSolver) Solve(A utils.CSR, b []float64) ([]float64, error) {
	return s.SolveFrom(A, b, nil)
}

// SolveFrom starts the iteration at x0 when it is not nil
func (s CGSolver) SolveFrom(A utils.CSR, b, x0 []float64) ([]float64, error) {
	var (
		n, _    = A.Dims()
		maxIter = s.MaxIterations
		tol     = s.Tolerance
		dinv    = A.Diagonal()
	)
	if n == 0 {
		return nil, nil
	}
	if maxIter <= 0 {
		maxIter = 10 * n
	}
	if tol <= 0 {
		tol = 1e-14
	}
	for i, d := range dinv {
		if d <= 0 {
			return nil, fmt.Errorf("%w: non-positive diagonal %g in row %d", ErrSingularSystem, d, i)
		}
		dinv[i] = 1 / d
	}
	rhs, bnorm := unitRHS(b)
	if bnorm == 0 {
		return make([]float64, n), nil
	}
	settings := &linsolve.Settings{
		Tolerance:     tol,
		MaxIterations: maxIter,
		PreconSolve: func(dst *mat.VecDense, _ bool, r mat.Vector) error {
			for i, d := range dinv {
				dst.SetVec(i, d*r.AtVec(i))
			}
			return nil
		},
	}
	if x0 != nil {
		settings.InitX = mat.NewVecDense(n, append([]float64(nil), x0...))
		settings.InitX.ScaleVec(1/bnorm, settings.InitX)
	}
	res, err := linsolve.Iterative(A, rhs, &linsolve.CG{}, settings)
	if err != nil {
		return nil, iterativeError("CG", err)
	}
	res.X.ScaleVec(bnorm, res.X)
	return res.X.RawVector().Data, nil
}

func iterativeError(method string, err error) error {
	var breakdown *linsolve.BreakdownError
	switch {
	case errors.Is(err, linsolve.ErrIterationLimit):
		return fmt.Errorf("%w: %s: %v", ErrNotConverged, method, err)
	case errors.As(err, &breakdown):
		return fmt.Errorf("%w: %s: %v", ErrSingularSystem, method, err)
	}
	return fmt.Errorf("%s: %w", method, err)
}

// AutoSolver uses the dense LU up to DirectLimit unknowns and GMRES above
type AutoSolver struct {
	DirectLimit int
}

func (s AutoSolver) Solve(A utils.CSR, b []float64) ([]float64, error) {
	if n, _ := A.Dims(); n <= s.DirectLimit {
		return DenseSolver{}.Solve(A, b)
	}
	return GMRESSolver{}.Solve(A, b)
}
