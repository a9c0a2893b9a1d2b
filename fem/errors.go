package fem

import "errors"

var (
	// ErrDegenerateElement indicates a triangle with (near) zero area.
	ErrDegenerateElement = errors.New("fem: degenerate element")

	// ErrUnknownBoundary indicates a boundary label never assigned.
	ErrUnknownBoundary = errors.New("fem: unknown boundary label")

	// ErrQuadratureDegree indicates a degree without a rule.
	ErrQuadratureDegree = errors.New("fem: unsupported quadrature degree")

	// ErrLocationNotFound indicates a point outside every element by more than the tolerance.
	ErrLocationNotFound = errors.New("fem: point not located in domain")

	// ErrNotConverged indicates a Newton or iterative linear solve that did not reach tolerance.
	ErrNotConverged = errors.New("fem: solver did not converge")

	// ErrSingularSystem indicates a linear system that cannot be factored.
	ErrSingularSystem = errors.New("fem: singular linear system")

	// ErrDimension indicates vectors whose length does not match the basis.
	ErrDimension = errors.New("fem: dimension mismatch")
)
