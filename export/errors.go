package export

import "errors"

var (
	// ErrFieldLength indicates a field with a value count other than the point count.
	ErrFieldLength = errors.New("export: field length differs from point count")

	// ErrBadConnectivity indicates a triangle referencing a missing point.
	ErrBadConnectivity = errors.New("export: triangle references a missing point")

	// ErrFieldName indicates an empty name or one that does not fit the format.
	ErrFieldName = errors.New("export: invalid field name")

	// ErrUnknownEncoding indicates a VTK encoding other than ascii or binary.
	ErrUnknownEncoding = errors.New("export: unknown VTK encoding")
)
