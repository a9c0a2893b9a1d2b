package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/notargets/avs/geometry"
)

// AVS field names are stored in a fixed width record
const avsNameLength = 16

// NewAVSFields builds the plotting mesh and one vertex scalar per field,
// in single precision
func NewAVSFields(tri [][3]int, x [][2]float64, fields []Field) (gm *geometry.TriMesh, vs []geometry.VertexScalar, err error) {
	if err = check(tri, x, fields); err != nil {
		return
	}
	var (
		xy    = make([]float32, 2*len(x))
		verts = make([][3]int64, len(tri))
	)
	for i, p := range x {
		xy[2*i], xy[2*i+1] = float32(p[0]), float32(p[1])
	}
	for k, t := range tri {
		verts[k] = [3]int64{int64(t[0]), int64(t[1]), int64(t[2])}
	}
	tm := geometry.NewTriMesh(xy, verts)
	gm = &tm
	for _, f := range fields {
		if len(f.Name) > avsNameLength {
			return nil, nil, fmt.Errorf("%w: %q is longer than %d bytes", ErrFieldName, f.Name, avsNameLength)
		}
		values := make([]float32, len(f.Values))
		for i, v := range f.Values {
			values[i] = float32(v)
		}
		vs = append(vs, geometry.VertexScalar{TMesh: gm, FieldValues: values})
	}
	return
}

// WriteAVS writes <base>.avs: the graph mesh, then each field as its name,
// its length and its values. All records are little-endian.
//
//	int64 2, int64 ntri, [ntri][3]int64, int64 npts, [2*npts]float32
//	int64 nfields, { [16]byte name, int64 n, [n]float32 }
func WriteAVS(base string, tri [][3]int, x [][2]float64, fields []Field) (path string, err error) {
	gm, vs, err := NewAVSFields(tri, x, fields)
	if err != nil {
		return
	}
	path = base + ".avs"
	file, err := os.Create(path)
	if err != nil {
		return
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(file)
	if err = encodeAVS(w, gm, fields, vs); err != nil {
		return path, fmt.Errorf("writing %s: %w", path, err)
	}
	err = w.Flush()
	return
}

func encodeAVS(w io.Writer, gm *geometry.TriMesh, fields []Field, vs []geometry.VertexScalar) error {
	var (
		err error
		put = func(data any) {
			if err == nil {
				err = binary.Write(w, binary.LittleEndian, data)
			}
		}
	)
	put(int64(2))
	put(int64(len(gm.TriVerts)))
	put(gm.TriVerts)
	put(int64(len(gm.XY) / 2))
	put(gm.XY)
	put(int64(len(vs)))
	for i, v := range vs {
		var name [avsNameLength]byte
		copy(name[:], fields[i].Name)
		put(name)
		put(int64(len(v.FieldValues)))
		put(v.FieldValues)
	}
	return err
}
