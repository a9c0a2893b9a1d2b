package moldflow

import "errors"

var (
	ErrMalformedPatran   = errors.New("moldflow: malformed Patran neutral file")
	ErrMalformedXML      = errors.New("moldflow: malformed results XML")
	ErrUnknownNode       = errors.New("moldflow: result references unknown node")
	ErrComponentMismatch = errors.New("moldflow: value count does not match number of components")
)
