package fem

// Basis is the degree one Lagrange basis on a triangle domain. There is one
// DOF per vertex referenced by a triangle, numbered in vertex order.
type Basis struct {
	Domain   *Domain
	DofOf    []int // Vertex to DOF, -1 for unreferenced vertices
	VertexOf []int // DOF to vertex
	elemDofs [][3]int
	grads    [][3][2]float64 // Constant shape function gradients per element
}

func NewBasis(d *Domain) (b *Basis) {
	b = &Basis{
		Domain:   d,
		DofOf:    make([]int, len(d.X)),
		elemDofs: make([][3]int, len(d.Tri)),
		grads:    make([][3][2]float64, len(d.Tri)),
	}
	for i := range b.DofOf {
		b.DofOf[i] = -1
	}
	for _, t := range d.Tri {
		for _, v := range t {
			b.DofOf[v] = 0
		}
	}
	for v, used := range b.DofOf {
		if used == 0 {
			b.DofOf[v] = len(b.VertexOf)
			b.VertexOf = append(b.VertexOf, v)
		}
	}
	for k, t := range d.Tri {
		for a := 0; a < 3; a++ {
			b.elemDofs[k][a] = b.DofOf[t[a]]
		}
		var (
			p0, p1, p2 = d.X[t[0]], d.X[t[1]], d.X[t[2]]
			det        = 2 * d.Area[k]
		)
		b.grads[k] = [3][2]float64{
			{(p1[1] - p2[1]) / det, (p2[0] - p1[0]) / det},
			{(p2[1] - p0[1]) / det, (p0[0] - p2[0]) / det},
			{(p0[1] - p1[1]) / det, (p1[0] - p0[0]) / det},
		}
	}
	return
}

// Len is the number of DOFs
func (b *Basis) Len() int { return len(b.VertexOf) }

// Dofs returns the DOFs of element k in local order
func (b *Basis) Dofs(k int) [3]int { return b.elemDofs[k] }

// Eval returns the three local shape function values at reference point xi
func (b *Basis) Eval(k int, xi [2]float64) [3]float64 {
	return [3]float64{1 - xi[0] - xi[1], xi[0], xi[1]}
}

// Gradients returns the physical gradients of the local shape functions
func (b *Basis) Gradients(k int) [3][2]float64 { return b.grads[k] }

// Interpolate evaluates the field with coefficients lhs at xi in element k
func (b *Basis) Interpolate(lhs []float64, k int, xi [2]float64) (u float64) {
	phi := b.Eval(k, xi)
	for a, dof := range b.elemDofs[k] {
		u += phi[a] * lhs[dof]
	}
	return
}

// VertexValues scatters DOF values to mesh vertices, NaN where unreferenced
func (b *Basis) VertexValues(lhs []float64) (v []float64) {
	v = make([]float64, len(b.DofOf))
	for i, dof := range b.DofOf {
		if dof < 0 {
			v[i] = nan
			continue
		}
		v[i] = lhs[dof]
	}
	return
}
