package readers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Gmsh22TestBuilder builds Gmsh 2.2 text for a structured plate: nx by ny
// cells, each split into two triangles, with tagged boundary lines
type Gmsh22TestBuilder struct {
	Width, Height float64
	Nx, Ny        int
	WallTag       int
	SurfaceTag    int
	NodeFields    map[string]int // name -> number of components
}

func NewGmsh22TestBuilder(nx, ny int) *Gmsh22TestBuilder {
	return &Gmsh22TestBuilder{
		Width: 1, Height: 1,
		Nx: nx, Ny: ny,
		WallTag: 1, SurfaceTag: 2,
		NodeFields: map[string]int{},
	}
}

func (b *Gmsh22TestBuilder) nodeID(i, j int) int { return j*(b.Nx+1) + i + 1 }

func (b *Gmsh22TestBuilder) NumNodes() int { return (b.Nx + 1) * (b.Ny + 1) }

func (b *Gmsh22TestBuilder) NumTriangles() int { return 2 * b.Nx * b.Ny }

func (b *Gmsh22TestBuilder) NumWallLines() int { return 2 * (b.Nx + b.Ny) }

// Build returns the file content
func (b *Gmsh22TestBuilder) Build() string {
	var lines []string
	lines = append(lines, "$MeshFormat", "2.2 0 8", "$EndMeshFormat")
	lines = append(lines, "$PhysicalNames", "2",
		fmt.Sprintf("1 %d \"walls\"", b.WallTag),
		fmt.Sprintf("2 %d \"plate\"", b.SurfaceTag),
		"$EndPhysicalNames")

	lines = append(lines, "$Nodes", fmt.Sprintf("%d", b.NumNodes()))
	for j := 0; j <= b.Ny; j++ {
		for i := 0; i <= b.Nx; i++ {
			x := b.Width * float64(i) / float64(b.Nx)
			y := b.Height * float64(j) / float64(b.Ny)
			lines = append(lines, fmt.Sprintf("%d %g %g 0", b.nodeID(i, j), x, y))
		}
	}
	lines = append(lines, "$EndNodes")

	var elems []string
	add := func(gmshType, tag int, nodes ...int) {
		s := fmt.Sprintf("%d %d 2 %d 1", len(elems)+1, gmshType, tag)
		for _, n := range nodes {
			s += fmt.Sprintf(" %d", n)
		}
		elems = append(elems, s)
	}
	// Boundary first, as Gmsh writes lower dimensions first
	for i := 0; i < b.Nx; i++ {
		add(1, b.WallTag, b.nodeID(i, 0), b.nodeID(i+1, 0))
		add(1, b.WallTag, b.nodeID(i+1, b.Ny), b.nodeID(i, b.Ny))
	}
	for j := 0; j < b.Ny; j++ {
		add(1, b.WallTag, b.nodeID(b.Nx, j), b.nodeID(b.Nx, j+1))
		add(1, b.WallTag, b.nodeID(0, j+1), b.nodeID(0, j))
	}
	for j := 0; j < b.Ny; j++ {
		for i := 0; i < b.Nx; i++ {
			add(2, b.SurfaceTag, b.nodeID(i, j), b.nodeID(i+1, j), b.nodeID(i+1, j+1))
			add(2, b.SurfaceTag, b.nodeID(i, j), b.nodeID(i+1, j+1), b.nodeID(i, j+1))
		}
	}
	lines = append(lines, "$Elements", fmt.Sprintf("%d", len(elems)))
	lines = append(lines, elems...)
	lines = append(lines, "$EndElements")

	for name, nc := range b.NodeFields {
		lines = append(lines, "$NodeData", "1", fmt.Sprintf("%q", name), "1", "0.0", "3", "0",
			fmt.Sprintf("%d", nc), fmt.Sprintf("%d", b.NumNodes()))
		for id := 1; id <= b.NumNodes(); id++ {
			row := fmt.Sprintf("%d", id)
			for c := 0; c < nc; c++ {
				row += fmt.Sprintf(" %d", 10*id+c)
			}
			lines = append(lines, row)
		}
		lines = append(lines, "$EndNodeData")
	}
	return strings.Join(lines, "\n") + "\n"
}

func createTempMshFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "test.msh")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return tmpFile
}
