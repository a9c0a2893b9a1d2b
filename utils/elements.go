package utils

// ElementType represents the finite element shapes found in Gmsh and Patran files

type ElementType int

const (
	Unknown ElementType = iota
	// 0D elements
	Point
	// 1D elements
	Line
	Line3 // 3-node line (quadratic)
	// 2D elements
	Triangle
	Quad
	Triangle6 // 6-node triangle (quadratic)
	Quad8     // 8-node quad (quadratic)
	Quad9     // 9-node quad
	// 3D elements
	Tet
	Hex
	Prism
	Pyramid
	Tet10 // 10-node tetrahedron (quadratic)
)

// String representation of element types
func (e ElementType) String() string {
	names := []string{
		"Unknown",
		"Point",
		"Line", "Line3",
		"Triangle", "Quad", "Triangle6", "Quad8", "Quad9",
		"Tet", "Hex", "Prism", "Pyramid", "Tet10",
	}
	if int(e) < len(names) {
		return names[e]
	}
	return "Invalid"
}

// GetDimension returns the spatial dimension of the element
func (e ElementType) GetDimension() int {
	switch e {
	case Point:
		return 0
	case Line, Line3:
		return 1
	case Triangle, Quad, Triangle6, Quad8, Quad9:
		return 2
	case Tet, Hex, Prism, Pyramid, Tet10:
		return 3
	default:
		return -1
	}
}

// GetNumNodes returns the number of nodes for each element type
func (e ElementType) GetNumNodes() int {
	switch e {
	case Point:
		return 1
	case Line:
		return 2
	case Line3, Triangle:
		return 3
	case Quad, Tet:
		return 4
	case Pyramid:
		return 5
	case Triangle6, Prism:
		return 6
	case Quad8, Hex:
		return 8
	case Quad9:
		return 9
	case Tet10:
		return 10
	default:
		return 0
	}
}

// GmshType is the element type number used by Gmsh MSH 2.2 and 4.x
func (e ElementType) GmshType() int {
	for code, et := range GmshElementTypes {
		if et == e && code < 26 {
			return code
		}
	}
	return 0
}

// GmshElementTypes maps Gmsh element type numbers to our ElementType
var GmshElementTypes = map[int]ElementType{
	1:  Line,      // 2-node line
	2:  Triangle,  // 3-node triangle
	3:  Quad,      // 4-node quadrangle
	4:  Tet,       // 4-node tetrahedron
	5:  Hex,       // 8-node hexahedron
	6:  Prism,     // 6-node prism
	7:  Pyramid,   // 5-node pyramid
	8:  Line3,     // 3-node line
	9:  Triangle6, // 6-node triangle
	10: Quad9,     // 9-node quadrangle
	11: Tet10,     // 10-node tetrahedron
	15: Point,     // 1-node point
	16: Quad8,     // 8-node quadrangle
	26: Line,      // 2-node line (duplicate)
	27: Line3,     // 3-node line (duplicate)
}
