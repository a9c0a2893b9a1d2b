package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/injectionflow/platedist/utils"
)

// unitSquare is two triangles on [0,1]^2 with the four edges tagged 7
func unitSquare(t *testing.T) *Mesh {
	m := NewMesh()
	m.ElementGroups[7] = &ElementGroup{Dimension: 1, Tag: 7, Name: "walls"}
	m.ElementGroups[9] = &ElementGroup{Dimension: 2, Tag: 9, Name: "plate"}
	m.AddNode(10, []float64{0, 0, 0})
	m.AddNode(20, []float64{1, 0, 0})
	m.AddNode(30, []float64{1, 1, 0})
	m.AddNode(40, []float64{0, 1, 0})
	// Boundary lines come first in the file, before the dimension is known
	require.NoError(t, m.AddElement(1, utils.Line, []int{7, 1}, []int{10, 20}))
	require.NoError(t, m.AddElement(2, utils.Line, []int{7, 1}, []int{20, 30}))
	require.NoError(t, m.AddElement(3, utils.Line, []int{7, 1}, []int{30, 40}))
	require.NoError(t, m.AddElement(4, utils.Line, []int{7, 1}, []int{40, 10}))
	require.NoError(t, m.AddElement(5, utils.Point, []int{0, 1}, []int{10}))
	require.NoError(t, m.AddElement(6, utils.Triangle, []int{9, 1}, []int{10, 20, 30}))
	require.NoError(t, m.AddElement(7, utils.Triangle, []int{9, 1}, []int{10, 30, 40}))
	m.Finalize()
	return m
}

func TestFinalizeSplitsBoundary(t *testing.T) {
	m := unitSquare(t)
	assert.Equal(t, 4, m.NumVertices)
	assert.Equal(t, 2, m.NumElements)
	assert.Equal(t, 2, m.GetMeshDimension())
	assert.Equal(t, []int{6, 7}, m.ElementIDs)
	require.Len(t, m.BoundaryElements["walls"], 4)
	assert.Equal(t, []int{1, 2}, m.BoundaryElements["walls"][1].Nodes)
	assert.Equal(t, []int{0, 1}, m.ElementGroups[9].Elements)

	tris, err := m.Triangles()
	require.NoError(t, err)
	assert.Equal(t, [][3]int{{0, 1, 2}, {0, 2, 3}}, tris)
	assert.Equal(t, map[int]int{6: 0, 7: 1}, m.CellIndex())
}

func TestAddElementErrors(t *testing.T) {
	m := NewMesh()
	m.AddNode(1, []float64{0, 0})
	err := m.AddElement(1, utils.Triangle, nil, []int{1, 1})
	assert.True(t, errors.Is(err, ErrMalformedSection))
	err = m.AddElement(1, utils.Line, nil, []int{1, 2})
	assert.True(t, errors.Is(err, ErrUnknownNode))
}

func TestTrianglesRejectsOtherElements(t *testing.T) {
	m := NewMesh()
	_, err := m.Triangles()
	assert.True(t, errors.Is(err, ErrEmptyMesh))

	for i := 1; i <= 4; i++ {
		m.AddNode(i, []float64{float64(i % 2), float64(i / 3), 0})
	}
	require.NoError(t, m.AddElement(1, utils.Quad, nil, []int{1, 2, 3, 4}))
	m.Finalize()
	_, err = m.Triangles()
	assert.True(t, errors.Is(err, ErrUnsupportedElement))
}

func TestFieldColumns(t *testing.T) {
	f := NewField("fiber", 2, 6)
	for i := range f.Values {
		f.Values[i] = float64(i)
	}
	g, err := f.Columns(3, 6)
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumComponents)
	assert.Equal(t, []float64{3, 4, 5, 9, 10, 11}, g.Values)

	_, err = f.Columns(3, 7)
	assert.True(t, errors.Is(err, ErrColumnRange))

	h, err := f.HStack(g)
	require.NoError(t, err)
	assert.Equal(t, 9, h.NumComponents)
	assert.Equal(t, []float64{6, 7, 8, 9, 10, 11, 9, 10, 11}, h.Row(1))

	_, err = f.HStack(NewField("x", 3, 1))
	assert.True(t, errors.Is(err, ErrColumnRange))

	n := NewNaNField("fill", 2, 1)
	assert.True(t, math.IsNaN(n.Values[1]))
	c := f.Clone()
	c.Values[0] = 42
	assert.Equal(t, 0., f.Values[0])
}
