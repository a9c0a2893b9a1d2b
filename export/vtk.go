package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Field is a named scalar with one value per point
type Field struct {
	Name   string
	Values []float64
}

// Encoding of the VTK data blocks
type Encoding uint8

const (
	ASCII Encoding = iota
	Binary
)

// ParseEncoding accepts "ascii" and "binary" in any case
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "ascii", "":
		return ASCII, nil
	case "binary":
		return Binary, nil
	}
	return ASCII, fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
}

func (e Encoding) String() string {
	if e == Binary {
		return "BINARY"
	}
	return "ASCII"
}

// VTK cell type of a linear triangle
const vtkTriangle = 5

// WriteVTK writes <base>.vtk, a legacy VTK 3.0 unstructured grid of
// triangles in the z = 0 plane with the fields as point data, in order.
// An existing file is truncated.
func WriteVTK(base string, tri [][3]int, x [][2]float64, fields []Field, enc Encoding) (path string, err error) {
	if err = check(tri, x, fields); err != nil {
		return
	}
	path = base + ".vtk"
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
	if err = EncodeVTK(w, tri, x, fields, enc); err != nil {
		return path, fmt.Errorf("writing %s: %w", path, err)
	}
	err = w.Flush()
	return
}

// EncodeVTK writes the legacy VTK representation to w
func EncodeVTK(w io.Writer, tri [][3]int, x [][2]float64, fields []Field, enc Encoding) error {
	if err := check(tri, x, fields); err != nil {
		return err
	}
	vw := &vtkWriter{w: w, binary: enc == Binary}
	vw.printf("# vtk DataFile Version 3.0\nplatedist\n%s\nDATASET UNSTRUCTURED_GRID\n", enc)

	vw.printf("POINTS %d double\n", len(x))
	for _, p := range x {
		if vw.binary {
			vw.raw([3]float64{p[0], p[1], 0})
			continue
		}
		vw.printf("%s %s 0\n", ftoa(p[0]), ftoa(p[1]))
	}
	vw.endBlock()

	vw.printf("CELLS %d %d\n", len(tri), 4*len(tri))
	for _, t := range tri {
		if vw.binary {
			vw.raw([4]int32{3, int32(t[0]), int32(t[1]), int32(t[2])})
			continue
		}
		vw.printf("3 %d %d %d\n", t[0], t[1], t[2])
	}
	vw.endBlock()

	vw.printf("CELL_TYPES %d\n", len(tri))
	for range tri {
		if vw.binary {
			vw.raw(int32(vtkTriangle))
			continue
		}
		vw.printf("%d\n", vtkTriangle)
	}
	vw.endBlock()

	if len(fields) > 0 {
		vw.printf("POINT_DATA %d\n", len(x))
	}
	for _, f := range fields {
		vw.printf("SCALARS %s double 1\nLOOKUP_TABLE default\n", f.Name)
		for _, v := range f.Values {
			if vw.binary {
				vw.raw(v)
				continue
			}
			vw.printf("%s\n", ftoa(v))
		}
		vw.endBlock()
	}
	return vw.err
}

func check(tri [][3]int, x [][2]float64, fields []Field) error {
	for k, t := range tri {
		for _, v := range t {
			if v < 0 || v >= len(x) {
				return fmt.Errorf("%w: triangle %d vertex %d of %d points", ErrBadConnectivity, k, v, len(x))
			}
		}
	}
	for _, f := range fields {
		if f.Name == "" || strings.ContainsAny(f.Name, " \t\n") {
			return fmt.Errorf("%w: %q", ErrFieldName, f.Name)
		}
		if len(f.Values) != len(x) {
			return fmt.Errorf("%w: %s has %d values for %d points", ErrFieldLength, f.Name, len(f.Values), len(x))
		}
	}
	return nil
}

// vtkWriter keeps the first error, later writes become no-ops. Binary
// blocks are big-endian.
type vtkWriter struct {
	w      io.Writer
	binary bool
	err    error
}

func (vw *vtkWriter) printf(format string, args ...any) {
	if vw.err != nil {
		return
	}
	_, vw.err = fmt.Fprintf(vw.w, format, args...)
}

func (vw *vtkWriter) raw(data any) {
	if vw.err != nil {
		return
	}
	vw.err = binary.Write(vw.w, binary.BigEndian, data)
}

func (vw *vtkWriter) endBlock() {
	if vw.binary {
		vw.printf("\n")
	}
}

func ftoa(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
