package meshgen

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/injectionflow/platedist/catalog"
	"github.com/injectionflow/platedist/mesh"
	"github.com/injectionflow/platedist/mesh/readers"
)

func area(m *mesh.Mesh) (total, smallest float64) {
	smallest = math.Inf(1)
	for _, e := range m.Elements {
		var (
			p0, p1, p2 = m.Vertices[e[0]], m.Vertices[e[1]], m.Vertices[e[2]]
			a          = 0.5 * ((p1[0]-p0[0])*(p2[1]-p0[1]) - (p2[0]-p0[0])*(p1[1]-p0[1]))
		)
		total += a
		smallest = math.Min(smallest, a)
	}
	return
}

func hasVertex(m *mesh.Mesh, x, y float64) bool {
	for _, v := range m.Vertices {
		if v[0] == x && v[1] == y {
			return true
		}
	}
	return false
}

func TestPlate(t *testing.T) {
	tests := []struct {
		name           string
		x, y           float64
		vertices, tris int
	}{
		{"lattice vertex", 10, 20, 231, 400},
		{"inside a triangle", 12, 21, 232, 402},
		{"on a cell diagonal", 12.5, 22.5, 232, 402},
		{"on the boundary", 12.5, 0, 232, 401},
		{"outside", 120, 20, 231, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Plate(100, 50, 5, tt.x, tt.y)
			require.NoError(t, err)
			assert.Equal(t, tt.vertices, m.NumVertices)
			assert.Equal(t, tt.tris, m.NumElements)
			total, smallest := area(m)
			assert.InDelta(t, 5000, total, 1e-9)
			// Counter-clockwise and non-degenerate
			assert.Positive(t, smallest)
			if tt.x <= 100 {
				assert.True(t, hasVertex(m, tt.x, tt.y))
			}
			var perimeter float64
			for _, be := range m.BoundaryElements[WallsName] {
				p, q := m.Vertices[be.Nodes[0]], m.Vertices[be.Nodes[1]]
				perimeter += math.Hypot(q[0]-p[0], q[1]-p[1])
			}
			assert.InDelta(t, 300, perimeter, 1e-9)
		})
	}
	_, err := Plate(0, 50, 5, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = Plate(100, 50, -1, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestPlateUnevenSize(t *testing.T) {
	// 7 does not divide the sides, cells shrink to fit
	m, err := Plate(30, 20, 7, 3, 3)
	require.NoError(t, err)
	total, smallest := area(m)
	assert.InDelta(t, 600, total, 1e-9)
	assert.Positive(t, smallest)
	assert.Equal(t, 5*3*2+2, m.NumElements)
}

func TestWriteCatalog(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
A:
  plate: [100, 50]
  injection_locations:
    - [[10.7, 20.2], x]
`))
	require.NoError(t, err)
	dataDir := t.TempDir()
	paths, err := WriteCatalog(cat, dataDir, 10, true)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dataDir, "A", "A_10_20_study.msh")}, paths)

	m, err := readers.ReadMeshFile(paths[0])
	require.NoError(t, err)
	assert.True(t, m.IsBinary)
	assert.True(t, hasVertex(m, 10.7, 20.2))
	assert.Equal(t, 10*5*2+2, m.NumElements)
	assert.Equal(t, WallsName, m.ElementGroups[WallsTag].Name)
	assert.NotEmpty(t, m.BoundaryElements[WallsName])
}
