// Package meshgen writes study meshes of rectangular plates, a triangle
// lattice with a vertex at the injection point.
package meshgen

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/injectionflow/platedist/catalog"
	"github.com/injectionflow/platedist/mesh"
	"github.com/injectionflow/platedist/mesh/writers"
	"github.com/injectionflow/platedist/utils"
)

var ErrInvalidSize = errors.New("meshgen: plate dimensions and element size must be positive")

// Physical groups of generated meshes
const (
	WallsTag    = 1
	SurfaceTag  = 2
	WallsName   = "walls"
	SurfaceName = "plate"
)

type plateMesh struct {
	x   [][2]float64
	tri [][3]int
}

// Plate triangulates [0,width]x[0,height] with cells of about h on a side.
// When (x, y) lies on the plate it becomes a vertex: the lattice triangle
// holding it is split, or the two sharing the edge it lies on.
func Plate(width, height, h, x, y float64) (*mesh.Mesh, error) {
	if !(width > 0 && height > 0 && h > 0) {
		return nil, fmt.Errorf("%w: %g x %g, h = %g", ErrInvalidSize, width, height, h)
	}
	var (
		nx = int(math.Max(1, math.Ceil(width/h-1e-9)))
		ny = int(math.Max(1, math.Ceil(height/h-1e-9)))
		hx = width / float64(nx)
		hy = height / float64(ny)
		pm = lattice(nx, ny, hx, hy)
	)
	if x >= 0 && x <= width && y >= 0 && y <= height {
		pm.insert(nx, ny, hx, hy, x, y)
	}
	return pm.toMesh(), nil
}

func lattice(nx, ny int, hx, hy float64) (pm *plateMesh) {
	pm = &plateMesh{}
	id := func(i, j int) int { return j*(nx+1) + i }
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			pm.x = append(pm.x, [2]float64{float64(i) * hx, float64(j) * hy})
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			// Lower right, then upper left of the cell
			pm.tri = append(pm.tri,
				[3]int{id(i, j), id(i+1, j), id(i+1, j+1)},
				[3]int{id(i, j), id(i+1, j+1), id(i, j+1)})
		}
	}
	return
}

// insert adds (x, y) as a vertex unless it already is one
func (pm *plateMesh) insert(nx, ny int, hx, hy, x, y float64) {
	const eps = 1e-9
	var (
		i = int(math.Min(float64(nx-1), math.Floor(x/hx)))
		j = int(math.Min(float64(ny-1), math.Floor(y/hy)))
		s = x/hx - float64(i) // Cell local coordinates in [0,1]
		t = y/hy - float64(j)
		k = 2 * (j*nx + i)
	)
	if s < t {
		// Upper left triangle of the cell
		k++
	}
	tri := pm.tri[k]
	for _, v := range tri {
		if math.Abs(pm.x[v][0]-x) <= eps*hx && math.Abs(pm.x[v][1]-y) <= eps*hy {
			pm.x[v] = [2]float64{x, y}
			return
		}
	}
	p := len(pm.x)
	pm.x = append(pm.x, [2]float64{x, y})
	for e := 0; e < 3; e++ {
		a, b := tri[e], tri[(e+1)%3]
		if !onSegment(pm.x[a], pm.x[b], pm.x[p], eps*math.Min(hx, hy)) {
			continue
		}
		// Split every triangle sharing edge ab
		var split [][3]int
		for kk, t := range pm.tri {
			for ee := 0; ee < 3; ee++ {
				u, w := t[ee], t[(ee+1)%3]
				if (u == a && w == b) || (u == b && w == a) {
					c := t[(ee+2)%3]
					pm.tri[kk] = [3]int{u, p, c}
					split = append(split, [3]int{p, w, c})
					break
				}
			}
		}
		pm.tri = append(pm.tri, split...)
		return
	}
	pm.tri[k] = [3]int{tri[0], tri[1], p}
	pm.tri = append(pm.tri, [3]int{tri[1], tri[2], p}, [3]int{tri[2], tri[0], p})
}

func onSegment(a, b, p [2]float64, tol float64) bool {
	var (
		ab    = [2]float64{b[0] - a[0], b[1] - a[1]}
		ap    = [2]float64{p[0] - a[0], p[1] - a[1]}
		l     = math.Hypot(ab[0], ab[1])
		cross = (ab[0]*ap[1] - ab[1]*ap[0]) / l
	)
	return math.Abs(cross) <= tol
}

func (pm *plateMesh) toMesh() (m *mesh.Mesh) {
	m = mesh.NewMesh()
	m.FormatVersion = "2.2"
	m.DataSize = 8
	m.ElementGroups[WallsTag] = &mesh.ElementGroup{Dimension: 1, Tag: WallsTag, Name: WallsName}
	m.ElementGroups[SurfaceTag] = &mesh.ElementGroup{Dimension: 2, Tag: SurfaceTag, Name: SurfaceName}
	for i, p := range pm.x {
		m.AddNode(i+1, []float64{p[0], p[1], 0})
	}
	var id int
	add := func(et utils.ElementType, tag int, nodes ...int) {
		id++
		ids := make([]int, len(nodes))
		for n, v := range nodes {
			ids[n] = v + 1
		}
		// Node ids are those just added, AddElement cannot fail
		if err := m.AddElement(id, et, []int{tag, tag}, ids); err != nil {
			panic(err)
		}
	}
	for _, t := range pm.tri {
		add(utils.Triangle, SurfaceTag, t[0], t[1], t[2])
	}
	for _, e := range boundaryEdges(pm.tri) {
		add(utils.Line, WallsTag, e[0], e[1])
	}
	m.Finalize()
	return
}

// boundaryEdges returns the edges owned by one triangle, in triangle order
func boundaryEdges(tri [][3]int) (edges [][2]int) {
	count := make(map[[2]int]int)
	key := func(a, b int) [2]int {
		if a > b {
			a, b = b, a
		}
		return [2]int{a, b}
	}
	for _, t := range tri {
		for e := 0; e < 3; e++ {
			count[key(t[e], t[(e+1)%3])]++
		}
	}
	for _, t := range tri {
		for e := 0; e < 3; e++ {
			if a, b := t[e], t[(e+1)%3]; count[key(a, b)] == 1 {
				edges = append(edges, [2]int{a, b})
			}
		}
	}
	return
}

// WriteCase writes the study mesh of a case at its catalog path
func WriteCase(c catalog.Case, width, height, h float64, binary bool) error {
	m, err := Plate(width, height, h, c.Injection.X, c.Injection.Y)
	if err != nil {
		return fmt.Errorf("%s: %w", c, err)
	}
	if err = os.MkdirAll(filepath.Dir(c.MeshPath), 0o755); err != nil {
		return err
	}
	log.Printf("Writing %s: %d vertices, %d triangles", c.MeshPath, m.NumVertices, m.NumElements)
	return writers.WriteGmsh22(c.MeshPath, m, binary)
}

// WriteCatalog writes the study meshes of every case in the catalog
func WriteCatalog(cat *catalog.Catalog, dataDir string, h float64, binary bool) (paths []string, err error) {
	plates := make(map[string]catalog.Plate, len(cat.Plates))
	for _, p := range cat.Plates {
		plates[p.Name] = p
	}
	for _, c := range cat.Cases(dataDir) {
		p := plates[c.Plate]
		if err = WriteCase(c, p.Width, p.Height, h, binary); err != nil {
			return
		}
		paths = append(paths, c.MeshPath)
	}
	return
}
