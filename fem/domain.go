package fem

import (
	"fmt"
	"math"
	"sort"

	"github.com/injectionflow/platedist/mesh"
)

// Edge is a boundary edge of element Elem, Nodes in the element's
// counter-clockwise order
type Edge struct {
	Elem  int
	Nodes [2]int
}

// Domain is a linear triangle mesh in the plane
type Domain struct {
	X    [][2]float64 // Vertex coordinates
	Tri  [][3]int     // Counter-clockwise vertex indices
	Area []float64

	boundary []Edge
	labels   map[string][]Edge
}

// NewDomain builds the domain of the triangles of a 2D mesh; z is ignored
func NewDomain(m *mesh.Mesh) (*Domain, error) {
	tris, err := m.Triangles()
	if err != nil {
		return nil, err
	}
	x := make([][2]float64, m.NumVertices)
	for i, v := range m.Vertices {
		x[i] = [2]float64{v[0], v[1]}
	}
	return NewDomainFromTriangles(x, tris)
}

// NewDomainFromTriangles orients the triangles counter-clockwise and finds
// the boundary edges, those owned by exactly one triangle
func NewDomainFromTriangles(x [][2]float64, tri [][3]int) (*Domain, error) {
	d := &Domain{
		X:      x,
		Tri:    make([][3]int, len(tri)),
		Area:   make([]float64, len(tri)),
		labels: make(map[string][]Edge),
	}
	if len(tri) == 0 {
		return nil, mesh.ErrEmptyMesh
	}
	var scale float64
	for _, p := range x {
		scale = math.Max(scale, math.Max(math.Abs(p[0]), math.Abs(p[1])))
	}
	if scale == 0 {
		scale = 1
	}
	for k, t := range tri {
		for _, v := range t {
			if v < 0 || v >= len(x) {
				return nil, fmt.Errorf("%w: element %d vertex %d", mesh.ErrUnknownNode, k, v)
			}
		}
		a := signedArea(x[t[0]], x[t[1]], x[t[2]])
		if math.Abs(a) <= 1e-14*scale*scale {
			return nil, fmt.Errorf("%w: element %d has area %g", ErrDegenerateElement, k, a)
		}
		if a < 0 {
			t[1], t[2] = t[2], t[1]
			a = -a
		}
		d.Tri[k] = t
		d.Area[k] = a
	}
	d.findBoundary()
	return d, nil
}

func signedArea(p0, p1, p2 [2]float64) float64 {
	return 0.5 * ((p1[0]-p0[0])*(p2[1]-p0[1]) - (p2[0]-p0[0])*(p1[1]-p0[1]))
}

func (d *Domain) findBoundary() {
	type key [2]int
	var (
		count = make(map[key]int)
		order []Edge
	)
	for k, t := range d.Tri {
		for e := 0; e < 3; e++ {
			a, b := t[e], t[(e+1)%3]
			kk := key{a, b}
			if a > b {
				kk = key{b, a}
			}
			if count[kk] == 0 {
				order = append(order, Edge{Elem: k, Nodes: [2]int{a, b}})
			}
			count[kk]++
		}
	}
	d.boundary = d.boundary[:0]
	for _, e := range order {
		kk := key{e.Nodes[0], e.Nodes[1]}
		if kk[0] > kk[1] {
			kk = key{kk[1], kk[0]}
		}
		if count[kk] == 1 {
			d.boundary = append(d.boundary, e)
		}
	}
}

func (d *Domain) NumElements() int { return len(d.Tri) }

// BoundaryEdges returns every boundary edge
func (d *Domain) BoundaryEdges() []Edge { return d.boundary }

// WithBoundary assigns a label to a set of boundary edges
func (d *Domain) WithBoundary(label string, edges []Edge) *Domain {
	d.labels[label] = append([]Edge(nil), edges...)
	return d
}

// LabelAllBoundary assigns the whole boundary to label
func (d *Domain) LabelAllBoundary(label string) *Domain {
	return d.WithBoundary(label, d.boundary)
}

func (d *Domain) Boundary(label string) ([]Edge, error) {
	edges, ok := d.labels[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoundary, label)
	}
	return edges, nil
}

// Labels returns the boundary labels in sorted order
func (d *Domain) Labels() (labels []string) {
	for l := range d.labels {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return
}

// MapToPhysical maps reference coordinates in element k to the plane
func (d *Domain) MapToPhysical(k int, xi [2]float64) [2]float64 {
	var (
		t          = d.Tri[k]
		p0, p1, p2 = d.X[t[0]], d.X[t[1]], d.X[t[2]]
	)
	return [2]float64{
		p0[0] + (p1[0]-p0[0])*xi[0] + (p2[0]-p0[0])*xi[1],
		p0[1] + (p1[1]-p0[1])*xi[0] + (p2[1]-p0[1])*xi[1],
	}
}

// Barycentric returns the reference coordinates of p in element k
func (d *Domain) Barycentric(k int, p [2]float64) (xi [2]float64) {
	var (
		t          = d.Tri[k]
		p0, p1, p2 = d.X[t[0]], d.X[t[1]], d.X[t[2]]
		det        = 2 * d.Area[k]
		dx, dy     = p[0] - p0[0], p[1] - p0[1]
	)
	xi[0] = (dx*(p2[1]-p0[1]) - dy*(p2[0]-p0[0])) / det
	xi[1] = (dy*(p1[0]-p0[0]) - dx*(p1[1]-p0[1])) / det
	return
}
