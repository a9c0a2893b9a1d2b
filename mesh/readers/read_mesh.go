package readers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/injectionflow/platedist/mesh"
)

// ReadMeshFile reads a mesh file based on extension
func ReadMeshFile(filename string) (*mesh.Mesh, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".msh":
		// Version is detected from the $MeshFormat section
		return ReadGmshAuto(filename)
	default:
		return nil, fmt.Errorf("%w: %q", mesh.ErrUnsupportedFormat, ext)
	}
}
