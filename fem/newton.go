package fem

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Newton solves R(u) = 0 on the free DOFs of a constraint
type Newton struct {
	Tolerance     float64 // On the 2-norm of the free residual
	MaxIterations int
	Degree        int // Quadrature degree
	LineSearch    bool
	Solver        LinearSolver
	Logf          func(format string, args ...any) // Per iteration residuals, nil is silent
}

// NewtonInfo records the residual history of a solve
type NewtonInfo struct {
	Iterations int
	Residual   float64
	History    []float64
	FreeDofs   int
}

const minStep = 1. / 1024

// Solve starts from lhs0 with the constrained values imposed
func (nt Newton) Solve(form WeakForm, b *Basis, constrain Constraint, lhs0 []float64) (lhs []float64, info NewtonInfo, err error) {
	if len(constrain) != b.Len() {
		err = fmt.Errorf("%w: constraint of length %d for %d DOFs", ErrDimension, len(constrain), b.Len())
		return
	}
	if lhs, err = constrain.Apply(lhs0); err != nil {
		return
	}
	solver := nt.Solver
	if solver == nil {
		solver = AutoSolver{DirectLimit: 1000}
	}
	var (
		free = constrain.Free()
		rf   = make([]float64, len(free))
		norm float64
	)
	info.FreeDofs = len(free)
	if len(free) == 0 {
		return
	}
	freeNorm := func(res []float64) float64 {
		for k, i := range free {
			rf[k] = res[i]
		}
		return floats.Norm(rf, 2)
	}

	for it := 0; ; it++ {
		res, jac, aerr := Assemble(form, b, lhs, nt.Degree)
		if aerr != nil {
			err = aerr
			return
		}
		norm = freeNorm(res)
		info.History = append(info.History, norm)
		info.Residual = norm
		info.Iterations = it
		if nt.Logf != nil {
			nt.Logf("newton %3d residual %.6e", it, norm)
		}
		if math.IsNaN(norm) || math.IsInf(norm, 0) {
			err = fmt.Errorf("%w: non-finite residual at iteration %d", ErrNotConverged, it)
			return
		}
		if norm <= nt.Tolerance {
			return
		}
		if it >= nt.MaxIterations {
			err = fmt.Errorf("%w: residual %.3e after %d iterations", ErrNotConverged, norm, it)
			return
		}

		// J_ff dx = -r_f
		for k := range rf {
			rf[k] = -rf[k]
		}
		dx, serr := solver.Solve(jac.Submatrix(free), rf)
		if serr != nil {
			err = fmt.Errorf("newton iteration %d: %w", it, serr)
			return
		}

		step := 1.
		trial := make([]float64, len(lhs))
		for {
			copy(trial, lhs)
			for k, i := range free {
				trial[i] += step * dx[k]
			}
			if !nt.LineSearch || step <= minStep {
				break
			}
			tres, _, terr := Assemble(form, b, trial, nt.Degree)
			if terr != nil {
				err = terr
				return
			}
			if tn := freeNorm(tres); tn < norm {
				break
			}
			step /= 2
		}
		lhs = trial
	}
}
