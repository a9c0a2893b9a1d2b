package mesh

import (
	"fmt"
	"sort"

	"github.com/injectionflow/platedist/utils"
)

// ElementGroup is a Gmsh physical group
type ElementGroup struct {
	Dimension int
	Tag       int
	Name      string
	Elements  []int
}

// BoundaryElement is a lower dimensional element, e.g. a line on a 2D mesh
type BoundaryElement struct {
	ElementType utils.ElementType
	Nodes       []int // Vertex indices, 0-based
	Tag         int   // Physical tag
}

// Mesh is an unstructured mesh with optional point and cell data
type Mesh struct {
	// Geometry
	Vertices [][]float64 // Vertex coordinates [nvertices][3]
	NodeIDs  []int       // File node id for each vertex
	// NodeIDMap maps file node ids to vertex indices
	NodeIDMap map[int]int

	// Element data, highest dimension only
	Elements     [][]int             // Element to vertex connectivity [nelems][nverts_per_elem]
	ElementTypes []utils.ElementType // Element type for each element
	ElementTags  []int               // Physical group/tag for each element
	ElementIDs   []int               // File element id for each element

	ElementGroups    map[int]*ElementGroup
	BoundaryElements map[string][]BoundaryElement

	// Attached fields, keyed by name
	PointData map[string]*Field
	CellData  map[string]*Field

	// File metadata
	FormatVersion string
	IsBinary      bool
	DataSize      int

	// Mesh statistics
	NumElements int
	NumVertices int

	pending []pendingElement
}

type pendingElement struct {
	id    int
	etype utils.ElementType
	tags  []int
	nodes []int
}

func NewMesh() *Mesh {
	return &Mesh{
		NodeIDMap:        make(map[int]int),
		ElementGroups:    make(map[int]*ElementGroup),
		BoundaryElements: make(map[string][]BoundaryElement),
		PointData:        make(map[string]*Field),
		CellData:         make(map[string]*Field),
	}
}

// AddNode appends a vertex with the file node id
func (m *Mesh) AddNode(nodeID int, coords []float64) {
	xyz := make([]float64, 3)
	copy(xyz, coords)
	m.NodeIDMap[nodeID] = len(m.Vertices)
	m.NodeIDs = append(m.NodeIDs, nodeID)
	m.Vertices = append(m.Vertices, xyz)
	m.NumVertices = len(m.Vertices)
}

func (m *Mesh) GetNodeIndex(nodeID int) (idx int, ok bool) {
	idx, ok = m.NodeIDMap[nodeID]
	return
}

// AddElement records an element by file node ids. Elements are split into
// volume and boundary sets by Finalize once the mesh dimension is known.
func (m *Mesh) AddElement(elemID int, etype utils.ElementType, tags, nodeIDs []int) error {
	if len(nodeIDs) != etype.GetNumNodes() {
		return fmt.Errorf("%w: element %d of type %s has %d nodes",
			ErrMalformedSection, elemID, etype, len(nodeIDs))
	}
	nodes := make([]int, len(nodeIDs))
	for i, id := range nodeIDs {
		idx, ok := m.GetNodeIndex(id)
		if !ok {
			return fmt.Errorf("%w: element %d references node %d", ErrUnknownNode, elemID, id)
		}
		nodes[i] = idx
	}
	m.pending = append(m.pending, pendingElement{
		id:    elemID,
		etype: etype,
		tags:  append([]int(nil), tags...),
		nodes: nodes,
	})
	return nil
}

// AddBoundaryElement adds a boundary element under a boundary name
func (m *Mesh) AddBoundaryElement(name string, be BoundaryElement) {
	m.BoundaryElements[name] = append(m.BoundaryElements[name], be)
}

// GetMeshDimension returns the highest element dimension present
func (m *Mesh) GetMeshDimension() (dim int) {
	dim = -1
	for _, et := range m.ElementTypes {
		if d := et.GetDimension(); d > dim {
			dim = d
		}
	}
	for _, pe := range m.pending {
		if d := pe.etype.GetDimension(); d > dim {
			dim = d
		}
	}
	return
}

// Finalize splits the elements read so far into top dimension elements and
// named boundary elements. Readers call it after the last section.
func (m *Mesh) Finalize() {
	var (
		dim = m.GetMeshDimension()
	)
	for _, pe := range m.pending {
		var physicalTag int
		if len(pe.tags) > 0 {
			physicalTag = pe.tags[0]
		}
		if pe.etype.GetDimension() < dim {
			if pe.etype == utils.Point {
				continue
			}
			m.AddBoundaryElement(m.boundaryName(physicalTag), BoundaryElement{
				ElementType: pe.etype,
				Nodes:       pe.nodes,
				Tag:         physicalTag,
			})
			continue
		}
		idx := len(m.Elements)
		m.Elements = append(m.Elements, pe.nodes)
		m.ElementTypes = append(m.ElementTypes, pe.etype)
		m.ElementTags = append(m.ElementTags, physicalTag)
		m.ElementIDs = append(m.ElementIDs, pe.id)
		if group, ok := m.ElementGroups[physicalTag]; ok {
			group.Elements = append(group.Elements, idx)
		}
	}
	m.pending = nil
	m.NumElements = len(m.Elements)
	m.NumVertices = len(m.Vertices)
}

func (m *Mesh) boundaryName(physicalTag int) string {
	if group, ok := m.ElementGroups[physicalTag]; ok && group.Name != "" {
		return group.Name
	}
	return fmt.Sprintf("boundary_%d", physicalTag)
}

// Triangles returns the connectivity of a linear triangle mesh
func (m *Mesh) Triangles() (tris [][3]int, err error) {
	if m.NumElements == 0 {
		return nil, ErrEmptyMesh
	}
	tris = make([][3]int, m.NumElements)
	for k, et := range m.ElementTypes {
		if et != utils.Triangle {
			return nil, fmt.Errorf("%w: element %d is a %s", ErrUnsupportedElement, k, et)
		}
		copy(tris[k][:], m.Elements[k])
	}
	return
}

// CellIndex returns the element index for a file element id
func (m *Mesh) CellIndex() (idx map[int]int) {
	idx = make(map[int]int, len(m.ElementIDs))
	for k, id := range m.ElementIDs {
		idx[id] = k
	}
	return
}

// FieldNames returns the point data names in sorted order
func (m *Mesh) FieldNames() (names []string) {
	for name := range m.PointData {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// CellFieldNames returns the cell data names in sorted order
func (m *Mesh) CellFieldNames() (names []string) {
	for name := range m.CellData {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// PrintStatistics prints mesh statistics
func (m *Mesh) PrintStatistics() {
	fmt.Printf("Mesh Statistics:\n")
	fmt.Printf("  Vertices: %d\n", m.NumVertices)
	fmt.Printf("  Elements: %d\n", m.NumElements)

	typeCounts := make(map[utils.ElementType]int)
	for _, t := range m.ElementTypes {
		typeCounts[t]++
	}
	fmt.Printf("  Element types:\n")
	for t, count := range typeCounts {
		fmt.Printf("    %s: %d\n", t, count)
	}
	for name, belems := range m.BoundaryElements {
		fmt.Printf("  Boundary %q: %d elements\n", name, len(belems))
	}
	for _, name := range m.FieldNames() {
		fmt.Printf("  Point data %q: %d components\n", name, m.PointData[name].NumComponents)
	}
	for _, name := range m.CellFieldNames() {
		fmt.Printf("  Cell data %q: %d components\n", name, m.CellData[name].NumComponents)
	}
}
