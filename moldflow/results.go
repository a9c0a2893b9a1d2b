package moldflow

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/injectionflow/platedist/mesh"
)

// Result data types
const (
	NodalData   = "NDDT"
	ElementData = "ELDT"
)

type xmlResults struct {
	XMLName  xml.Name     `xml:"Moldflow"`
	Datasets []xmlDataset `xml:"Dataset"`
}

type xmlDataset struct {
	DataType string `xml:"DataType"`
	DeptVar  struct {
		Name string `xml:"Name,attr"`
		Unit string `xml:"Unit,attr"`
	} `xml:"DeptVar"`
	NumberOfComponents int        `xml:"NumberOfComponents"`
	Blocks             []xmlBlock `xml:"Blocks>Block"`
}

type xmlBlock struct {
	NodeData    []xmlRow `xml:"Data>NodeData"`
	ElementData []xmlRow `xml:"Data>ElementData"`
}

type xmlRow struct {
	ID     int    `xml:"ID,attr"`
	Values string `xml:"DeptValues"`
}

// Dataset is one result quantity keyed by node or element id
type Dataset struct {
	Name          string
	Unit          string
	Nodal         bool
	NumComponents int
	IDs           []int
	Values        []float64 // row major, NumComponents per id
}

// ReadResults reads every dataset in a Moldflow results XML file
func ReadResults(filename string) ([]Dataset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	fallback := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	ds, err := DecodeResults(file, fallback)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return ds, nil
}

// DecodeResults decodes results XML; fallbackName names datasets without a
// DeptVar name. Rows of later blocks replace rows of earlier ones.
func DecodeResults(r io.Reader, fallbackName string) (datasets []Dataset, err error) {
	var doc xmlResults
	if err = xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}
	if len(doc.Datasets) == 0 {
		return nil, fmt.Errorf("%w: no Dataset element", ErrMalformedXML)
	}
	for n, xd := range doc.Datasets {
		ds := Dataset{
			Name:          strings.TrimSpace(xd.DeptVar.Name),
			Unit:          xd.DeptVar.Unit,
			NumComponents: xd.NumberOfComponents,
		}
		switch strings.TrimSpace(xd.DataType) {
		case NodalData:
			ds.Nodal = true
		case ElementData:
		default:
			return nil, fmt.Errorf("%w: dataset %d has data type %q", ErrMalformedXML, n, xd.DataType)
		}
		if ds.Name == "" {
			ds.Name = fallbackName
		}
		rowIndex := make(map[int]int)
		for _, blk := range xd.Blocks {
			rows := blk.ElementData
			if ds.Nodal {
				rows = blk.NodeData
			}
			for _, row := range rows {
				vals, err := parseValues(row.Values)
				if err != nil {
					return nil, fmt.Errorf("%s id %d: %w", ds.Name, row.ID, err)
				}
				if ds.NumComponents == 0 {
					ds.NumComponents = len(vals)
				}
				if len(vals) != ds.NumComponents {
					return nil, fmt.Errorf("%w: %s id %d has %d values, want %d",
						ErrComponentMismatch, ds.Name, row.ID, len(vals), ds.NumComponents)
				}
				if k, ok := rowIndex[row.ID]; ok {
					copy(ds.Values[k*ds.NumComponents:], vals)
					continue
				}
				rowIndex[row.ID] = len(ds.IDs)
				ds.IDs = append(ds.IDs, row.ID)
				ds.Values = append(ds.Values, vals...)
			}
		}
		datasets = append(datasets, ds)
	}
	return
}

func parseValues(s string) (vals []float64, err error) {
	for _, f := range strings.Fields(s) {
		var v float64
		if v, err = strconv.ParseFloat(fortranExponent(f), 64); err != nil {
			return nil, fmt.Errorf("%w: value %q", ErrMalformedXML, f)
		}
		vals = append(vals, v)
	}
	return
}

// Attach stores the dataset on the mesh as point or cell data. Nodes or
// elements without a row get NaN.
func (ds Dataset) Attach(msh *mesh.Mesh) error {
	if !ds.Nodal {
		var (
			cellIdx = msh.CellIndex()
			f       = mesh.NewNaNField(ds.Name, msh.NumElements, ds.NumComponents)
		)
		for i, id := range ds.IDs {
			if k, ok := cellIdx[id]; ok {
				f.SetRow(k, ds.Values[i*ds.NumComponents:(i+1)*ds.NumComponents])
			}
		}
		msh.CellData[ds.Name] = f
		return nil
	}
	f := mesh.NewNaNField(ds.Name, msh.NumVertices, ds.NumComponents)
	for i, id := range ds.IDs {
		idx, ok := msh.GetNodeIndex(id)
		if !ok {
			return fmt.Errorf("%w: %q row for node %d", ErrUnknownNode, ds.Name, id)
		}
		f.SetRow(idx, ds.Values[i*ds.NumComponents:(i+1)*ds.NumComponents])
	}
	msh.PointData[ds.Name] = f
	return nil
}

// Read reads a Patran mesh scaled by scale and attaches every dataset of
// the results files
func Read(patPath string, scale float64, xmlPaths []string) (*mesh.Mesh, error) {
	msh, err := ReadPatran(patPath, scale)
	if err != nil {
		return nil, err
	}
	for _, xmlPath := range xmlPaths {
		datasets, err := ReadResults(xmlPath)
		if err != nil {
			return nil, err
		}
		for _, ds := range datasets {
			if err = ds.Attach(msh); err != nil {
				return nil, fmt.Errorf("%s: %w", xmlPath, err)
			}
		}
	}
	return msh, nil
}
