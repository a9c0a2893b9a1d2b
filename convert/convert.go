package convert

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/injectionflow/platedist/mesh"
	"github.com/injectionflow/platedist/mesh/writers"
	"github.com/injectionflow/platedist/moldflow"
)

var ErrShortPointData = errors.New("convert: multi-column point data has fewer than 6 columns")

// DefaultResultFiles are looked up next to the input when none are given
var DefaultResultFiles = []string{"fill_time.xml", "fiber_orientation.xml"}

type Options struct {
	Input    string   // Patran neutral file
	Scale    float64  // Coordinate scale factor, 1000 for meters to millimeters
	XMLFiles []string // Result files; DefaultResultFiles next to Input when empty
	Output   string   // Defaults to Input with a .msh extension
	Binary   bool
}

// AugmentPointData appends a copy of columns [3:6] to every point data
// field with more than one column. For a symmetric tensor stored as
// (xx, yy, zz, xy, yz, xz) this gives the nine entry layout readers expect.
func AugmentPointData(msh *mesh.Mesh) error {
	for _, name := range msh.FieldNames() {
		f := msh.PointData[name]
		if f.NumComponents <= 1 {
			continue
		}
		if f.NumComponents < 6 {
			return fmt.Errorf("%w: %q has %d", ErrShortPointData, name, f.NumComponents)
		}
		tail, err := f.Columns(3, 6)
		if err != nil {
			return err
		}
		if msh.PointData[name], err = f.HStack(tail); err != nil {
			return err
		}
	}
	return nil
}

func DropCellData(msh *mesh.Mesh) {
	msh.CellData = make(map[string]*mesh.Field)
}

// OutputPath replaces the extension of in with ext
func OutputPath(in, ext string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + ext
}

// ResultFiles resolves the XML result files for opts. Every default file
// must exist next to the input.
func (opts Options) ResultFiles() (files []string, err error) {
	if len(opts.XMLFiles) > 0 {
		return opts.XMLFiles, nil
	}
	dir := filepath.Dir(opts.Input)
	for _, name := range DefaultResultFiles {
		p := filepath.Join(dir, name)
		if _, err = os.Stat(p); err != nil {
			return nil, fmt.Errorf("result file for %s: %w", opts.Input, err)
		}
		files = append(files, p)
	}
	return
}

// Convert reads the Moldflow export, augments the tensor fields, drops cell
// data and writes a Gmsh 2.2 file. It returns the written path.
func Convert(opts Options) (string, error) {
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	xmlFiles, err := opts.ResultFiles()
	if err != nil {
		return "", err
	}
	msh, err := moldflow.Read(opts.Input, opts.Scale, xmlFiles)
	if err != nil {
		return "", err
	}
	log.Printf("read %s: %d nodes, %d elements, %d result files",
		opts.Input, msh.NumVertices, msh.NumElements, len(xmlFiles))
	if err = AugmentPointData(msh); err != nil {
		return "", err
	}
	DropCellData(msh)

	out := opts.Output
	if out == "" {
		out = OutputPath(opts.Input, ".msh")
	}
	if err = writers.WriteGmsh22(out, msh, opts.Binary); err != nil {
		return "", err
	}
	log.Printf("wrote %s", out)
	return out, nil
}
