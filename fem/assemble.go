package fem

import (
	"fmt"
	"math"

	"github.com/injectionflow/platedist/utils"
)

// WeakForm is the integrand of a residual R_b(u) = ∫ f(x, u, ∇u, φ_b, ∇φ_b) dV
// written over dual numbers, so that the Jacobian comes with the residual
type WeakForm interface {
	Integrand(x [2]float64, u Dual, gradU [2]Dual, phi float64, gradPhi [2]float64) Dual
}

// Assemble evaluates the residual and its Jacobian at lhs
func Assemble(form WeakForm, b *Basis, lhs []float64, degree int) (res []float64, jac utils.CSR, err error) {
	n := b.Len()
	if len(lhs) != n {
		err = fmt.Errorf("%w: %d coefficients for %d DOFs", ErrDimension, len(lhs), n)
		return
	}
	rule, err := TriangleRule(degree)
	if err != nil {
		return
	}
	var (
		d   = b.Domain
		dok = utils.NewDOK(n, n).SetName("Jacobian")
	)
	res = make([]float64, n)
	for k := range d.Tri {
		var (
			dofs  = b.Dofs(k)
			grads = b.Gradients(k)
			uloc  [NumLocal]Dual
			rloc  [NumLocal]Dual
			gradU [2]Dual
			// Determinant of the map from the reference triangle
			jdet = 2 * d.Area[k]
		)
		for a := 0; a < NumLocal; a++ {
			uloc[a] = Variable(lhs[dofs[a]], a)
		}
		// Gradients are constant on a linear triangle
		for a := 0; a < NumLocal; a++ {
			gradU[0] = gradU[0].Add(uloc[a].Scale(grads[a][0]))
			gradU[1] = gradU[1].Add(uloc[a].Scale(grads[a][1]))
		}
		for _, q := range rule {
			var (
				phi = b.Eval(k, q.Xi)
				x   = d.MapToPhysical(k, q.Xi)
				u   Dual
				w   = q.Weight * jdet
			)
			for a := 0; a < NumLocal; a++ {
				u = u.Add(uloc[a].Scale(phi[a]))
			}
			for bb := 0; bb < NumLocal; bb++ {
				f := form.Integrand(x, u, gradU, phi[bb], grads[bb])
				rloc[bb] = rloc[bb].Add(f.Scale(w))
			}
		}
		for bb := 0; bb < NumLocal; bb++ {
			res[dofs[bb]] += rloc[bb].Value()
			for a := 0; a < NumLocal; a++ {
				dok.Add(dofs[bb], dofs[a], rloc[bb].Deriv(a))
			}
		}
	}
	jac = dok.ToCSR()
	return
}

// MassMatrix assembles M_ij = ∫ φ_i φ_j and b_i = ∫ t φ_i over the domain
func MassMatrix(b *Basis, target float64, degree int) (M utils.CSR, rhs []float64, err error) {
	rule, err := TriangleRule(degree)
	if err != nil {
		return
	}
	var (
		n   = b.Len()
		dok = utils.NewDOK(n, n).SetName("Mass")
	)
	rhs = make([]float64, n)
	for k := range b.Domain.Tri {
		var (
			dofs = b.Dofs(k)
			jdet = 2 * b.Domain.Area[k]
		)
		for _, q := range rule {
			phi := b.Eval(k, q.Xi)
			w := q.Weight * jdet
			for i := 0; i < NumLocal; i++ {
				rhs[dofs[i]] += w * target * phi[i]
				for j := 0; j < NumLocal; j++ {
					dok.Add(dofs[i], dofs[j], w*phi[i]*phi[j])
				}
			}
		}
	}
	M = dok.ToCSR()
	return
}

// BoundaryMassMatrix is MassMatrix over the boundary edges, ∫ ... dS
func BoundaryMassMatrix(b *Basis, edges []Edge, target float64, degree int) (M utils.CSR, rhs []float64, err error) {
	rule, err := LineRule(degree)
	if err != nil {
		return
	}
	var (
		n   = b.Len()
		dok = utils.NewDOK(n, n).SetName("BoundaryMass")
	)
	rhs = make([]float64, n)
	for _, e := range edges {
		var (
			p0, p1 = b.Domain.X[e.Nodes[0]], b.Domain.X[e.Nodes[1]]
			length = math.Hypot(p1[0]-p0[0], p1[1]-p0[1])
			dofs   = [2]int{b.DofOf[e.Nodes[0]], b.DofOf[e.Nodes[1]]}
		)
		for _, q := range rule {
			phi := [2]float64{1 - q.T, q.T}
			w := q.Weight * length
			for i := 0; i < 2; i++ {
				rhs[dofs[i]] += w * target * phi[i]
				for j := 0; j < 2; j++ {
					dok.Add(dofs[i], dofs[j], w*phi[i]*phi[j])
				}
			}
		}
	}
	M = dok.ToCSR()
	return
}
