package mesh

import (
	"fmt"
	"math"
)

// Field holds one named array with NumComponents values per point or cell,
// stored row major.
type Field struct {
	Name          string
	NumComponents int
	Values        []float64
}

func NewField(name string, rows, numComponents int) *Field {
	return &Field{
		Name:          name,
		NumComponents: numComponents,
		Values:        make([]float64, rows*numComponents),
	}
}

// NewNaNField is used when rows are filled sparsely from a results file
func NewNaNField(name string, rows, numComponents int) (f *Field) {
	f = NewField(name, rows, numComponents)
	for i := range f.Values {
		f.Values[i] = math.NaN()
	}
	return
}

func (f *Field) Rows() int {
	if f.NumComponents == 0 {
		return 0
	}
	return len(f.Values) / f.NumComponents
}

// Row returns a view of row i
func (f *Field) Row(i int) []float64 {
	return f.Values[i*f.NumComponents : (i+1)*f.NumComponents]
}

func (f *Field) SetRow(i int, vals []float64) {
	copy(f.Row(i), vals)
}

// Columns returns a new field with columns [from, to) of every row
func (f *Field) Columns(from, to int) (*Field, error) {
	if from < 0 || to > f.NumComponents || from >= to {
		return nil, fmt.Errorf("%w: [%d:%d] of %q with %d components",
			ErrColumnRange, from, to, f.Name, f.NumComponents)
	}
	var (
		rows = f.Rows()
		out  = NewField(f.Name, rows, to-from)
	)
	for i := 0; i < rows; i++ {
		out.SetRow(i, f.Row(i)[from:to])
	}
	return out, nil
}

// HStack returns a new field whose rows are f's rows followed by g's rows
func (f *Field) HStack(g *Field) (*Field, error) {
	if f.Rows() != g.Rows() {
		return nil, fmt.Errorf("%w: %q has %d rows, %q has %d",
			ErrColumnRange, f.Name, f.Rows(), g.Name, g.Rows())
	}
	var (
		rows = f.Rows()
		out  = NewField(f.Name, rows, f.NumComponents+g.NumComponents)
	)
	for i := 0; i < rows; i++ {
		row := out.Row(i)
		copy(row, f.Row(i))
		copy(row[f.NumComponents:], g.Row(i))
	}
	return out, nil
}

func (f *Field) Clone() *Field {
	return &Field{
		Name:          f.Name,
		NumComponents: f.NumComponents,
		Values:        append([]float64(nil), f.Values...),
	}
}
