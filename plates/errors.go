package plates

import (
	"errors"
	"fmt"

	"github.com/injectionflow/platedist/catalog"
)

var (
	ErrNonPositiveLength = errors.New("plates: reference length must be positive")
	ErrEmptyInlet        = errors.New("plates: injection location supports no DOF")
)

// CaseError is a failure while solving one catalog case
type CaseError struct {
	Plate     string
	Injection catalog.Injection
	MeshPath  string
	Err       error
}

func (e *CaseError) Error() string {
	return fmt.Sprintf("plate %s injection (%g, %g), mesh %s: %v",
		e.Plate, e.Injection.X, e.Injection.Y, e.MeshPath, e.Err)
}

func (e *CaseError) Unwrap() error { return e.Err }

func newCaseError(c catalog.Case, err error) *CaseError {
	return &CaseError{Plate: c.Plate, Injection: c.Injection, MeshPath: c.MeshPath, Err: err}
}
