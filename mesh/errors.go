package mesh

import "errors"

var (
	// ErrUnsupportedFormat indicates a file extension or version no reader handles.
	ErrUnsupportedFormat = errors.New("mesh: unsupported mesh format")

	// ErrUnexpectedEOF indicates a section ended before its declared size.
	ErrUnexpectedEOF = errors.New("mesh: unexpected end of file")

	// ErrMalformedSection indicates a section whose content does not parse.
	ErrMalformedSection = errors.New("mesh: malformed section")

	// ErrUnknownNode indicates an element or data row referencing a missing node.
	ErrUnknownNode = errors.New("mesh: reference to unknown node")

	// ErrUnsupportedElement indicates an element type the solver cannot use.
	ErrUnsupportedElement = errors.New("mesh: unsupported element type")

	// ErrEmptyMesh indicates a mesh without elements.
	ErrEmptyMesh = errors.New("mesh: mesh has no elements")

	// ErrColumnRange indicates a column slice outside a field's components.
	ErrColumnRange = errors.New("mesh: column range outside field components")
)
