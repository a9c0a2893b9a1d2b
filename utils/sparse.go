package utils

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// DOK is an assembly-time sparse matrix, accumulating element contributions
type DOK struct {
	M    *sparse.DOK
	name string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		"unnamed",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

func (m DOK) SetName(name string) DOK {
	m.name = name
	return m
}

// Add accumulates val into entry (i,j)
func (m DOK) Add(i, j int, val float64) {
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m DOK) ToCSR() CSR {
	return NewCSRFrom(m.M.ToCSR(), m.name)
}

// CSR wraps a compressed sparse row matrix whose rows are sorted by column
type CSR struct {
	M    *sparse.CSR
	name string
}

// NewCSRFrom sorts the column indices of each row in place
func NewCSRFrom(c *sparse.CSR, name string) (R CSR) {
	R = CSR{M: c, name: name}
	raw := R.RawMatrix()
	for i := 0; i < raw.I; i++ {
		lo, hi := raw.Indptr[i], raw.Indptr[i+1]
		sort.Sort(rowSorter{ind: raw.Ind[lo:hi], data: raw.Data[lo:hi]})
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }
func (m CSR) Data() []float64 {
	return m.RawMatrix().Data
}
func (m CSR) Name() string { return m.name }

// Row returns the column indices and values of row i, sharing storage
func (m CSR) Row(i int) (cols []int, vals []float64) {
	raw := m.RawMatrix()
	lo, hi := raw.Indptr[i], raw.Indptr[i+1]
	return raw.Ind[lo:hi], raw.Data[lo:hi]
}

// MulVec computes dst = M * x
func (m CSR) MulVec(dst, x []float64) {
	var (
		raw = m.RawMatrix()
	)
	if len(dst) != raw.I || len(x) != raw.J {
		panic(fmt.Errorf("dimension mismatch in %s: %dx%d * %d -> %d",
			m.name, raw.I, raw.J, len(x), len(dst)))
	}
	for i := 0; i < raw.I; i++ {
		var sum float64
		for p := raw.Indptr[i]; p < raw.Indptr[i+1]; p++ {
			sum += raw.Data[p] * x[raw.Ind[p]]
		}
		dst[i] = sum
	}
}

// MulVecTo computes dst = M x, or Mᵀ x when trans is set, so that a CSR
// serves as the operator of an iterative solve
func (m CSR) MulVecTo(dst *mat.VecDense, trans bool, x mat.Vector) {
	var (
		raw    = m.RawMatrix()
		nr, nc = raw.I, raw.J
	)
	if trans {
		nr, nc = nc, nr
	}
	if x.Len() != nc {
		panic(fmt.Errorf("dimension mismatch in %s: %dx%d * %d", m.name, nr, nc, x.Len()))
	}
	var (
		xs  = make([]float64, nc)
		out = make([]float64, nr)
	)
	for j := range xs {
		xs[j] = x.AtVec(j)
	}
	if trans {
		for i := 0; i < raw.I; i++ {
			for p := raw.Indptr[i]; p < raw.Indptr[i+1]; p++ {
				out[raw.Ind[p]] += raw.Data[p] * xs[i]
			}
		}
	} else {
		m.MulVec(out, xs)
	}
	if dst.IsEmpty() {
		dst.ReuseAsVec(nr)
	}
	for i, v := range out {
		dst.SetVec(i, v)
	}
}

// Diagonal returns the main diagonal, zero where no entry is stored
func (m CSR) Diagonal() (d []float64) {
	nr, _ := m.Dims()
	d = make([]float64, nr)
	for i := 0; i < nr; i++ {
		cols, vals := m.Row(i)
		for p, j := range cols {
			if j == i {
				d[i] = vals[p]
				break
			}
		}
	}
	return
}

// RowMaxAbs returns the largest absolute value stored in each row
func (m CSR) RowMaxAbs() (r []float64) {
	nr, _ := m.Dims()
	r = make([]float64, nr)
	for i := 0; i < nr; i++ {
		_, vals := m.Row(i)
		for _, v := range vals {
			if v < 0 {
				v = -v
			}
			if v > r[i] {
				r[i] = v
			}
		}
	}
	return
}

// Submatrix extracts the rows and columns listed in idx, in the order given
func (m CSR) Submatrix(idx []int) CSR {
	var (
		nr, _ = m.Dims()
		pos   = make([]int, nr)
		sub   = NewDOK(len(idx), len(idx))
	)
	for i := range pos {
		pos[i] = -1
	}
	for k, i := range idx {
		pos[i] = k
	}
	for k, i := range idx {
		cols, vals := m.Row(i)
		for p, j := range cols {
			if pos[j] >= 0 && vals[p] != 0 {
				sub.M.Set(k, pos[j], vals[p])
			}
		}
	}
	return sub.SetName(m.name + "[free]").ToCSR()
}

// ToDense is used by the direct solver on small systems
func (m CSR) ToDense() *mat.Dense {
	nr, nc := m.Dims()
	D := mat.NewDense(nr, nc, nil)
	for i := 0; i < nr; i++ {
		cols, vals := m.Row(i)
		for p, j := range cols {
			D.Set(i, j, vals[p])
		}
	}
	return D
}

type rowSorter struct {
	ind  []int
	data []float64
}

func (r rowSorter) Len() int           { return len(r.ind) }
func (r rowSorter) Less(i, j int) bool { return r.ind[i] < r.ind[j] }
func (r rowSorter) Swap(i, j int) {
	r.ind[i], r.ind[j] = r.ind[j], r.ind[i]
	r.data[i], r.data[j] = r.data[j], r.data[i]
}
