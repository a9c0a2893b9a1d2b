package plates

import (
	"fmt"
	"math"
	"strings"

	"github.com/injectionflow/platedist/InputParameters"
	"github.com/injectionflow/platedist/fem"
)

// WallsLabel is the boundary group receiving the wall condition; it covers
// the whole topological boundary of the plate
const WallsLabel = "walls"

// Result holds both distance fields on the sampled triangulation
type Result struct {
	Tri    [][3]int
	X      [][2]float64
	DI, DW []float64 // Distance from the inlet and from the walls
	GI, GW []float64 // The solved fields at the same points
	G0     float64
	Dofs   int

	NewtonInlet, NewtonWalls fem.NewtonInfo
}

// LinearSolver maps the parameter name to a solver for the Newton steps
func LinearSolver(params *InputParameters.SolverParameters) fem.LinearSolver {
	switch strings.ToLower(params.LinearSolver) {
	case InputParameters.SolverDirect:
		return fem.DenseSolver{}
	case InputParameters.SolverGMRES:
		return fem.GMRESSolver{}
	case InputParameters.SolverCG:
		// The Jacobian is not symmetric; CG is only safe near a constant G
		return fem.CGSolver{}
	}
	return fem.AutoSolver{DirectLimit: params.DirectSolveLimit}
}

// DistancePolicy maps the parameter name to the D evaluation
func DistancePolicy(params *InputParameters.SolverParameters) Policy {
	switch strings.ToLower(params.DistancePolicy) {
	case InputParameters.DistancePropagate:
		return Propagate
	case InputParameters.DistanceClamp:
		return Clamp(params.SingularityEpsilon)
	}
	return Mask(params.SingularityEpsilon)
}

// InletConstraint fixes G = G0 on the DOFs supporting the injection location
func InletConstraint(b *fem.Basis, loc fem.Location, G0 float64) (fem.Constraint, error) {
	var (
		c    = fem.NewConstraint(b.Len())
		dofs = loc.Support(b)
	)
	if len(dofs) == 0 {
		return nil, fmt.Errorf("%w: element %d at %v", ErrEmptyInlet, loc.Elem, loc.Xi)
	}
	for _, i := range dofs {
		c[i] = G0
	}
	return c, nil
}

// Solve computes the distance from the inlet and from the walls on a domain
// whose boundary carries the WallsLabel group. logf receives the Newton
// residuals and may be nil.
func Solve(d *fem.Domain, lref float64, loc fem.Location,
	params *InputParameters.SolverParameters, logf func(format string, args ...any)) (r *Result, err error) {
	if !(lref > 0) {
		return nil, fmt.Errorf("%w: %g", ErrNonPositiveLength, lref)
	}
	var (
		b      = fem.NewBasis(d)
		G0     = 2 / lref
		degree = params.QuadratureDegree
		form   = NewResidual(params.Sigma)
	)
	inlet, err := InletConstraint(b, loc, G0)
	if err != nil {
		return
	}
	walls, err := fem.Optimize(b, fem.OnBoundary(WallsLabel), G0, degree, params.DropTolerance)
	if err != nil {
		return
	}
	lhs0, err := fem.Optimize(b, fem.WholeDomain, G0, degree, params.DropTolerance)
	if err != nil {
		return
	}
	for i, v := range lhs0 {
		// DOFs dropped by the projection start from G0
		if math.IsNaN(v) {
			lhs0[i] = G0
		}
	}

	newton := fem.Newton{
		Tolerance:     params.NewtonTolerance,
		MaxIterations: params.MaxNewtonIterations,
		Degree:        degree,
		LineSearch:    true,
		Solver:        LinearSolver(params),
		Logf:          logf,
	}
	r = &Result{G0: G0, Dofs: b.Len()}
	lhsInlet, info, err := newton.Solve(form, b, inlet, lhs0)
	if err != nil {
		return nil, fmt.Errorf("inlet problem: %w", err)
	}
	r.NewtonInlet = info
	lhsWalls, info, err := newton.Solve(form, b, walls, lhs0)
	if err != nil {
		return nil, fmt.Errorf("walls problem: %w", err)
	}
	r.NewtonWalls = info

	sample, err := fem.NewSample(d, params.SampleRefinement)
	if err != nil {
		return nil, err
	}
	var (
		policy   = DistancePolicy(params)
		distance = func(G float64) float64 { return policy(G, G0) }
	)
	r.Tri, r.X = sample.Tri, sample.X
	r.GI = sample.Eval(b, lhsInlet)
	r.GW = sample.Eval(b, lhsWalls)
	r.DI = sample.EvalFunc(b, lhsInlet, distance)
	r.DW = sample.EvalFunc(b, lhsWalls, distance)
	return
}
