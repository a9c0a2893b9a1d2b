package plates

import (
	"github.com/injectionflow/platedist/InputParameters"
	"github.com/injectionflow/platedist/catalog"
	"github.com/injectionflow/platedist/fem"
	"github.com/injectionflow/platedist/mesh/readers"
)

// RunCase reads the study mesh of a case, labels its whole boundary as
// walls, locates the injection point and solves. Failures are returned as
// a *CaseError.
func RunCase(c catalog.Case, params *InputParameters.SolverParameters,
	logf func(format string, args ...any)) (*Result, error) {
	msh, err := readers.ReadMeshFile(c.MeshPath)
	if err != nil {
		return nil, newCaseError(c, err)
	}
	d, err := fem.NewDomain(msh)
	if err != nil {
		return nil, newCaseError(c, err)
	}
	d.LabelAllBoundary(WallsLabel)
	loc, err := d.Locate(c.Injection.X, c.Injection.Y, params.InletTolerance)
	if err != nil {
		return nil, newCaseError(c, err)
	}
	r, err := Solve(d, c.ReferenceLength, loc, params, logf)
	if err != nil {
		return nil, newCaseError(c, err)
	}
	return r, nil
}
