package writers

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/injectionflow/platedist/mesh"
)

// WriteGmsh22 writes the mesh with its point and cell data as a Gmsh 2.2
// file. Elements are renumbered from 1, top dimension elements first.
func WriteGmsh22(filename string, msh *mesh.Mesh, binaryFormat bool) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(file)
	if err = EncodeGmsh22(w, msh, binaryFormat); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	return w.Flush()
}

// EncodeGmsh22 writes the Gmsh 2.2 representation of msh to w
func EncodeGmsh22(w io.Writer, msh *mesh.Mesh, binaryFormat bool) error {
	gw := &gmshWriter{w: w, binary: binaryFormat}
	gw.meshFormat()
	gw.physicalNames(msh)
	gw.nodes(msh)
	gw.elements(msh)
	for _, name := range msh.FieldNames() {
		gw.data("NodeData", msh.PointData[name], msh.NodeIDs)
	}
	cellIDs := make([]int, msh.NumElements)
	for k := range cellIDs {
		cellIDs[k] = k + 1
	}
	for _, name := range msh.CellFieldNames() {
		gw.data("ElementData", msh.CellData[name], cellIDs)
	}
	return gw.err
}

// gmshWriter keeps the first error, later writes become no-ops
type gmshWriter struct {
	w      io.Writer
	binary bool
	err    error
}

func (gw *gmshWriter) printf(format string, args ...any) {
	if gw.err != nil {
		return
	}
	_, gw.err = fmt.Fprintf(gw.w, format, args...)
}

func (gw *gmshWriter) raw(data any) {
	if gw.err != nil {
		return
	}
	gw.err = binary.Write(gw.w, binary.LittleEndian, data)
}

func (gw *gmshWriter) meshFormat() {
	if gw.binary {
		gw.printf("$MeshFormat\n2.2 1 8\n")
		gw.raw(int32(1))
		gw.printf("\n$EndMeshFormat\n")
		return
	}
	gw.printf("$MeshFormat\n2.2 0 8\n$EndMeshFormat\n")
}

func (gw *gmshWriter) physicalNames(msh *mesh.Mesh) {
	if len(msh.ElementGroups) == 0 {
		return
	}
	tags := make([]int, 0, len(msh.ElementGroups))
	for tag := range msh.ElementGroups {
		tags = append(tags, tag)
	}
	sort.Ints(tags)
	gw.printf("$PhysicalNames\n%d\n", len(tags))
	for _, tag := range tags {
		g := msh.ElementGroups[tag]
		gw.printf("%d %d \"%s\"\n", g.Dimension, g.Tag, g.Name)
	}
	gw.printf("$EndPhysicalNames\n")
}

func (gw *gmshWriter) nodes(msh *mesh.Mesh) {
	gw.printf("$Nodes\n%d\n", msh.NumVertices)
	for i, xyz := range msh.Vertices {
		if gw.binary {
			gw.raw(int32(msh.NodeIDs[i]))
			gw.raw(xyz[:3])
			continue
		}
		gw.printf("%d %s %s %s\n", msh.NodeIDs[i], ftoa(xyz[0]), ftoa(xyz[1]), ftoa(xyz[2]))
	}
	if gw.binary {
		gw.printf("\n")
	}
	gw.printf("$EndNodes\n")
}

func (gw *gmshWriter) elements(msh *mesh.Mesh) {
	type record struct {
		gmshType int
		tag      int
		nodes    []int
	}
	var records []record
	for k, nodes := range msh.Elements {
		records = append(records, record{msh.ElementTypes[k].GmshType(), msh.ElementTags[k], nodes})
	}
	names := make([]string, 0, len(msh.BoundaryElements))
	for name := range msh.BoundaryElements {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, be := range msh.BoundaryElements[name] {
			records = append(records, record{be.ElementType.GmshType(), be.Tag, be.Nodes})
		}
	}

	gw.printf("$Elements\n%d\n", len(records))
	for k, rec := range records {
		// Node ids are written back in file numbering
		ids := make([]int32, len(rec.nodes))
		for j, v := range rec.nodes {
			ids[j] = int32(msh.NodeIDs[v])
		}
		if gw.binary {
			gw.raw([]int32{int32(rec.gmshType), 1, 2})
			gw.raw([]int32{int32(k + 1), int32(rec.tag), int32(rec.tag)})
			gw.raw(ids)
			continue
		}
		gw.printf("%d %d 2 %d %d", k+1, rec.gmshType, rec.tag, rec.tag)
		for _, id := range ids {
			gw.printf(" %d", id)
		}
		gw.printf("\n")
	}
	if gw.binary {
		gw.printf("\n")
	}
	gw.printf("$EndElements\n")
}

// data writes a $NodeData or $ElementData section, one row per id
func (gw *gmshWriter) data(section string, f *mesh.Field, ids []int) {
	rows := f.Rows()
	gw.printf("$%s\n1\n\"%s\"\n1\n0.0\n3\n0\n%d\n%d\n", section, f.Name, f.NumComponents, rows)
	for i := 0; i < rows; i++ {
		if gw.binary {
			gw.raw(int32(ids[i]))
			gw.raw(f.Row(i))
			continue
		}
		gw.printf("%d", ids[i])
		for _, v := range f.Row(i) {
			gw.printf(" %s", ftoa(v))
		}
		gw.printf("\n")
	}
	if gw.binary {
		gw.printf("\n")
	}
	gw.printf("$End%s\n", section)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', 17, 64)
}
