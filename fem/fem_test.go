package fem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/injectionflow/platedist/mesh"
	"github.com/injectionflow/platedist/utils"
)

// rectDomain is an nx by ny lattice of the rectangle [0,w]x[0,h], each cell
// split along its diagonal
func rectDomain(t *testing.T, w, h float64, nx, ny int) *Domain {
	t.Helper()
	var (
		x   [][2]float64
		tri [][3]int
		id  = func(i, j int) int { return j*(nx+1) + i }
	)
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			x = append(x, [2]float64{w * float64(i) / float64(nx), h * float64(j) / float64(ny)})
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			tri = append(tri,
				[3]int{id(i, j), id(i+1, j), id(i+1, j+1)},
				[3]int{id(i, j), id(i+1, j+1), id(i, j+1)})
		}
	}
	d, err := NewDomainFromTriangles(x, tri)
	require.NoError(t, err)
	return d
}

func TestTriangleRule(t *testing.T) {
	for degree := 0; degree <= 4; degree++ {
		rule, err := TriangleRule(degree)
		require.NoError(t, err)
		var sum, xi2, xi4, xieta float64
		for _, q := range rule {
			sum += q.Weight
			xi2 += q.Weight * q.Xi[0] * q.Xi[0]
			xi4 += q.Weight * math.Pow(q.Xi[0], 4)
			xieta += q.Weight * q.Xi[0] * q.Xi[1]
		}
		assert.InDeltaf(t, 0.5, sum, 1e-14, "degree %d", degree)
		if degree >= 2 {
			assert.InDeltaf(t, 1./12, xi2, 1e-12, "degree %d", degree)
			assert.InDeltaf(t, 1./24, xieta, 1e-12, "degree %d", degree)
		}
		if degree >= 4 {
			assert.InDelta(t, 1./30, xi4, 1e-12)
		}
	}
	_, err := TriangleRule(5)
	assert.ErrorIs(t, err, ErrQuadratureDegree)
}

func TestLineRule(t *testing.T) {
	for degree := 0; degree <= 5; degree++ {
		rule, err := LineRule(degree)
		require.NoError(t, err)
		var sum, moment float64
		for _, q := range rule {
			sum += q.Weight
			moment += q.Weight * math.Pow(q.T, float64(degree))
		}
		assert.InDelta(t, 1, sum, 1e-14)
		assert.InDeltaf(t, 1/float64(degree+1), moment, 1e-12, "degree %d", degree)
	}
	_, err := LineRule(6)
	assert.ErrorIs(t, err, ErrQuadratureDegree)
}

func TestDomain(t *testing.T) {
	d := rectDomain(t, 2, 1, 4, 2)
	assert.Equal(t, 16, d.NumElements())
	var area float64
	for _, a := range d.Area {
		area += a
	}
	assert.InDelta(t, 2, area, 1e-14)
	// 2*(nx+ny) edges around the rectangle
	assert.Len(t, d.BoundaryEdges(), 12)

	_, err := d.Boundary("walls")
	assert.ErrorIs(t, err, ErrUnknownBoundary)
	walls, err := d.LabelAllBoundary("walls").Boundary("walls")
	require.NoError(t, err)
	assert.Len(t, walls, 12)
	assert.Equal(t, []string{"walls"}, d.Labels())

	{ // Clockwise input is reoriented
		d, err := NewDomainFromTriangles([][2]float64{{0, 0}, {0, 1}, {1, 0}}, [][3]int{{0, 1, 2}})
		require.NoError(t, err)
		assert.Equal(t, [3]int{0, 2, 1}, d.Tri[0])
		assert.InDelta(t, 0.5, d.Area[0], 1e-15)
	}
	{ // Errors
		_, err := NewDomainFromTriangles([][2]float64{{0, 0}, {1, 1}, {2, 2}}, [][3]int{{0, 1, 2}})
		assert.ErrorIs(t, err, ErrDegenerateElement)
		_, err = NewDomainFromTriangles([][2]float64{{0, 0}, {1, 0}, {0, 1}}, [][3]int{{0, 1, 3}})
		assert.ErrorIs(t, err, mesh.ErrUnknownNode)
		_, err = NewDomainFromTriangles(nil, nil)
		assert.ErrorIs(t, err, mesh.ErrEmptyMesh)
	}
}

func TestMapToPhysical(t *testing.T) {
	d := rectDomain(t, 3, 2, 3, 2)
	for k := range d.Tri {
		for _, xi := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {0.2, 0.3}} {
			p := d.MapToPhysical(k, xi)
			back := d.Barycentric(k, p)
			assert.InDelta(t, xi[0], back[0], 1e-13)
			assert.InDelta(t, xi[1], back[1], 1e-13)
		}
	}
}

func TestBasis(t *testing.T) {
	d := rectDomain(t, 1, 1, 2, 2)
	b := NewBasis(d)
	assert.Equal(t, 9, b.Len())
	for k := range d.Tri {
		phi := b.Eval(k, [2]float64{0.3, 0.1})
		assert.InDelta(t, 1, phi[0]+phi[1]+phi[2], 1e-15)
		// Gradients of a partition of unity sum to zero
		g := b.Gradients(k)
		assert.InDelta(t, 0, g[0][0]+g[1][0]+g[2][0], 1e-13)
		assert.InDelta(t, 0, g[0][1]+g[1][1]+g[2][1], 1e-13)
	}
	// A linear field is reproduced exactly
	var (
		f   = func(p [2]float64) float64 { return 1 + 2*p[0] - 3*p[1] }
		lhs = make([]float64, b.Len())
	)
	for dof, v := range b.VertexOf {
		lhs[dof] = f(d.X[v])
	}
	for k := range d.Tri {
		xi := [2]float64{0.25, 0.5}
		assert.InDelta(t, f(d.MapToPhysical(k, xi)), b.Interpolate(lhs, k, xi), 1e-13)
	}
	v := b.VertexValues(lhs)
	for i, x := range d.X {
		assert.InDelta(t, f(x), v[i], 1e-13)
	}
}

func TestUnreferencedVertex(t *testing.T) {
	d, err := NewDomainFromTriangles([][2]float64{{0, 0}, {1, 0}, {5, 5}, {0, 1}}, [][3]int{{0, 1, 3}})
	require.NoError(t, err)
	b := NewBasis(d)
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, -1, b.DofOf[2])
	v := b.VertexValues([]float64{1, 2, 3})
	assert.True(t, math.IsNaN(v[2]))
	assert.Equal(t, 3., v[3])
}

func TestDual(t *testing.T) {
	var (
		x = Variable(2, 0)
		y = Variable(3, 1)
	)
	z := x.Mul(y).Add(x.Powi(3)).Sub(y.Scale(2))
	assert.Equal(t, 2*3+8-6., z.Value())
	assert.Equal(t, 3+3*4., z.Deriv(0))
	assert.Equal(t, 2-2., z.Deriv(1))
	assert.Equal(t, 0., z.Deriv(2))
	g := Dot2([2]Dual{x, y}, [2]Dual{y, Constant(1)})
	assert.Equal(t, 9., g.Value())
	assert.Equal(t, [NumLocal]float64{3, 3, 0}, g.Gradient())
	h := DotConst2([2]Dual{x, y}, [2]float64{2, -1})
	assert.Equal(t, 1., h.Value())
	assert.Equal(t, [NumLocal]float64{2, -1, 0}, h.Gradient())

	// x^0 at zero has a zero derivative
	one := Variable(0, 2).Powi(0)
	assert.Equal(t, 1., one.Value())
	assert.Equal(t, [NumLocal]float64{}, one.Gradient())
	// Fourth power as used by the reaction term
	p := Variable(-0.5, 2).Powi(4)
	assert.InDelta(t, 0.0625, p.Value(), 1e-15)
	assert.InDelta(t, 4*-0.125, p.Deriv(2), 1e-15)
}

func TestConstraint(t *testing.T) {
	c := NewConstraint(4)
	assert.Equal(t, []int{0, 1, 2, 3}, c.Free())
	c[1] = 5
	other := NewConstraint(4)
	other[1], other[3] = 7, 1
	m, err := c.Merge(other)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, m.Fixed())
	assert.Equal(t, 7., m[1])
	assert.True(t, c.IsFixed(1))
	assert.False(t, c.IsFixed(3))
	lhs, err := m.Apply([]float64{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 7, 0, 1}, lhs)

	_, err = c.Merge(NewConstraint(3))
	assert.ErrorIs(t, err, ErrDimension)
	_, err = c.Apply(make([]float64, 2))
	assert.ErrorIs(t, err, ErrDimension)
}

// nonlinearForm is u^2 φ + (1+u) ∇u·∇φ
type nonlinearForm struct{}

func (nonlinearForm) Integrand(x [2]float64, u Dual, gradU [2]Dual, phi float64, gradPhi [2]float64) Dual {
	return u.Mul(u).Scale(phi).Add(u.Add(Constant(1)).Mul(DotConst2(gradU, gradPhi)))
}

func TestAssembleJacobian(t *testing.T) {
	var (
		d   = rectDomain(t, 1, 2, 3, 3)
		b   = NewBasis(d)
		lhs = make([]float64, b.Len())
	)
	for dof, v := range b.VertexOf {
		lhs[dof] = 0.5 + math.Sin(d.X[v][0]+2*d.X[v][1])
	}
	res, jac, err := Assemble(nonlinearForm{}, b, lhs, 2)
	require.NoError(t, err)
	const h = 1e-6
	for j := 0; j < b.Len(); j++ {
		pert := append([]float64(nil), lhs...)
		pert[j] += h
		res2, _, err := Assemble(nonlinearForm{}, b, pert, 2)
		require.NoError(t, err)
		for i := range res {
			assert.InDeltaf(t, (res2[i]-res[i])/h, jac.At(i, j), 1e-4, "J[%d][%d]", i, j)
		}
	}
	_, _, err = Assemble(nonlinearForm{}, b, lhs[1:], 2)
	assert.ErrorIs(t, err, ErrDimension)
}

func TestMassMatrix(t *testing.T) {
	var (
		d = rectDomain(t, 2, 1, 2, 2)
		b = NewBasis(d)
	)
	M, rhs, err := MassMatrix(b, 3, 2)
	require.NoError(t, err)
	// 1ᵀ M 1 is the area, Σ rhs is target times area
	var total, sumRhs float64
	for i := 0; i < b.Len(); i++ {
		_, vals := M.Row(i)
		for _, v := range vals {
			total += v
		}
		sumRhs += rhs[i]
	}
	assert.InDelta(t, 2, total, 1e-13)
	assert.InDelta(t, 6, sumRhs, 1e-13)

	walls, err := d.LabelAllBoundary("walls").Boundary("walls")
	require.NoError(t, err)
	Mb, rhsb, err := BoundaryMassMatrix(b, walls, 1, 2)
	require.NoError(t, err)
	total, sumRhs = 0, 0
	for i := 0; i < b.Len(); i++ {
		_, vals := Mb.Row(i)
		for _, v := range vals {
			total += v
		}
		sumRhs += rhsb[i]
	}
	assert.InDelta(t, 6, total, 1e-13)
	assert.InDelta(t, 6, sumRhs, 1e-13)
}

func TestOptimize(t *testing.T) {
	var (
		d = rectDomain(t, 1, 1, 4, 4).LabelAllBoundary("walls")
		b = NewBasis(d)
	)
	{ // Boundary projection of a constant fixes exactly the boundary DOFs
		c, err := Optimize(b, OnBoundary("walls"), 2.5, 2, 1e-12)
		require.NoError(t, err)
		assert.Len(t, c.Fixed(), 16)
		assert.Len(t, c.Free(), 9)
		for _, i := range c.Fixed() {
			assert.InDelta(t, 2.5, c[i], 1e-10)
			v := d.X[b.VertexOf[i]]
			onEdge := v[0] == 0 || v[0] == 1 || v[1] == 0 || v[1] == 1
			assert.True(t, onEdge)
		}
	}
	{ // Domain projection of a constant is the constant
		c, err := Optimize(b, WholeDomain, -1, 2, 1e-12)
		require.NoError(t, err)
		assert.Empty(t, c.Free())
		for _, v := range c {
			assert.InDelta(t, -1, v, 1e-10)
		}
	}
	_, err := Optimize(b, OnBoundary("inlet"), 1, 2, 0)
	assert.ErrorIs(t, err, ErrUnknownBoundary)
	assert.Equal(t, "boundary walls", OnBoundary("walls").String())
	assert.Equal(t, "domain", WholeDomain.String())
}

// diffusionForm is ∇u·∇φ
type diffusionForm struct{}

func (diffusionForm) Integrand(x [2]float64, u Dual, gradU [2]Dual, phi float64, gradPhi [2]float64) Dual {
	return DotConst2(gradU, gradPhi)
}

func TestNewtonLinear(t *testing.T) {
	var (
		d     = rectDomain(t, 2, 1, 6, 3).LabelAllBoundary("walls")
		b     = NewBasis(d)
		exact = func(p [2]float64) float64 { return 1 + p[0] + 2*p[1] }
		c     = NewConstraint(b.Len())
	)
	walls, err := d.Boundary("walls")
	require.NoError(t, err)
	for _, e := range walls {
		for _, v := range e.Nodes {
			c[b.DofOf[v]] = exact(d.X[v])
		}
	}
	for _, solver := range []LinearSolver{DenseSolver{}, GMRESSolver{}, AutoSolver{DirectLimit: 1}} {
		lhs, info, err := Newton{Tolerance: 1e-10, MaxIterations: 5, Degree: 1, LineSearch: true, Solver: solver}.
			Solve(diffusionForm{}, b, c, make([]float64, b.Len()))
		require.NoError(t, err)
		assert.LessOrEqual(t, info.Iterations, 2)
		assert.Equal(t, 10, info.FreeDofs)
		for dof, v := range b.VertexOf {
			assert.InDelta(t, exact(d.X[v]), lhs[dof], 1e-9)
		}
	}
}

func TestNewtonNonlinear(t *testing.T) {
	var (
		d = rectDomain(t, 1, 1, 5, 5).LabelAllBoundary("walls")
		b = NewBasis(d)
	)
	c, err := Optimize(b, OnBoundary("walls"), 1, 2, 1e-12)
	require.NoError(t, err)
	var logged int
	nt := Newton{
		Tolerance: 1e-10, MaxIterations: 20, Degree: 2, LineSearch: true,
		Logf: func(string, ...any) { logged++ },
	}
	_, info, err := nt.Solve(nonlinearForm{}, b, c, make([]float64, b.Len()))
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Residual, 1e-10)
	assert.Equal(t, info.Iterations+1, logged)
	assert.Len(t, info.History, logged)

	nt.MaxIterations = 0
	_, _, err = nt.Solve(nonlinearForm{}, b, c, make([]float64, b.Len()))
	assert.ErrorIs(t, err, ErrNotConverged)

	_, _, err = nt.Solve(nonlinearForm{}, b, c[1:], make([]float64, b.Len()))
	assert.ErrorIs(t, err, ErrDimension)
}

func TestLinearSolvers(t *testing.T) {
	var (
		d = rectDomain(t, 1, 1, 6, 6)
		b = NewBasis(d)
	)
	M, _, err := MassMatrix(b, 0, 2)
	require.NoError(t, err)
	var (
		n, _ = M.Dims()
		x    = make([]float64, n)
		rhs  = make([]float64, n)
	)
	for i := range x {
		x[i] = math.Cos(float64(i))
	}
	M.MulVec(rhs, x)
	for name, solver := range map[string]LinearSolver{
		"dense": DenseSolver{},
		"gmres": GMRESSolver{Restart: 10},
		"cg":    CGSolver{},
		"auto":  AutoSolver{DirectLimit: 10},
	} {
		got, err := solver.Solve(M, rhs)
		require.NoErrorf(t, err, name)
		assert.InDeltaSlicef(t, x, got, 1e-8, name)
	}
	// A singular system is rejected by the direct solver
	sing := M.Submatrix([]int{0, 1})
	for i := range sing.Data() {
		sing.Data()[i] = 1
	}
	_, err = DenseSolver{}.Solve(sing, []float64{1, 2})
	assert.ErrorIs(t, err, ErrSingularSystem)
}

func TestMinimizeQuadratic(t *testing.T) {
	var (
		d = rectDomain(t, 2, 1, 8, 4)
		b = NewBasis(d)
	)
	M, _, err := MassMatrix(b, 0, 2)
	require.NoError(t, err)
	var (
		n, _ = M.Dims()
		want = make([]float64, n)
		rhs  = make([]float64, n)
	)
	// Not a constant, so the lumped start is not the answer
	for i := range want {
		want[i] = 1 + math.Sin(float64(i))
	}
	M.MulVec(rhs, want)
	got, err := minimizeQuadratic(M, rhs)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-10)

	_, err = CGSolver{MaxIterations: 1, Tolerance: 1e-14}.Solve(M, rhs)
	assert.ErrorIs(t, err, ErrNotConverged)
}

func TestIterativeSolversScale(t *testing.T) {
	// Nonsymmetric, diagonally dominant, with a tiny right hand side
	const n = 30
	A := utils.NewDOK(n, n)
	for i := 0; i < n; i++ {
		A.Add(i, i, 4)
		if i > 0 {
			A.Add(i, i-1, -1.5)
		}
		if i < n-1 {
			A.Add(i, i+1, -0.5)
		}
	}
	var (
		csr  = A.ToCSR()
		want = make([]float64, n)
		rhs  = make([]float64, n)
	)
	for i := range want {
		want[i] = 1e-18 * math.Cos(float64(i))
	}
	csr.MulVec(rhs, want)
	got, err := GMRESSolver{Restart: 5}.Solve(csr, rhs)
	require.NoError(t, err)
	for i := range want {
		assert.InDelta(t, want[i]*1e18, got[i]*1e18, 1e-9)
	}
	got, err = GMRESSolver{}.Solve(csr, make([]float64, n))
	require.NoError(t, err)
	assert.Equal(t, make([]float64, n), got)
}

func TestLocate(t *testing.T) {
	d := rectDomain(t, 4, 2, 4, 2)
	{ // Inside
		loc, err := d.Locate(1.3, 0.4, 0)
		require.NoError(t, err)
		assert.Zero(t, loc.Distance)
		p := d.MapToPhysical(loc.Elem, loc.Xi)
		assert.InDelta(t, 1.3, p[0], 1e-12)
		assert.InDelta(t, 0.4, p[1], 1e-12)
	}
	{ // On a vertex, only that basis function is supported
		loc, err := d.Locate(1, 1, 0)
		require.NoError(t, err)
		b := NewBasis(d)
		dofs := loc.Support(b)
		require.Len(t, dofs, 1)
		assert.Equal(t, [2]float64{1, 1}, d.X[b.VertexOf[dofs[0]]])
	}
	{ // Just outside, projected onto the boundary
		loc, err := d.Locate(2.5, -0.01, 0.02)
		require.NoError(t, err)
		assert.InDelta(t, 0.01, loc.Distance, 1e-12)
		assert.InDelta(t, 2.5, loc.X[0], 1e-12)
		assert.InDelta(t, 0, loc.X[1], 1e-12)
	}
	_, err := d.Locate(2.5, -0.1, 0.02)
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestSample(t *testing.T) {
	d := rectDomain(t, 1, 1, 2, 1)
	_, err := NewSample(d, 1)
	assert.ErrorIs(t, err, ErrDimension)

	s, err := NewSample(d, 2)
	require.NoError(t, err)
	assert.Equal(t, 3*d.NumElements(), s.NumPoints())
	assert.Len(t, s.Tri, d.NumElements())

	s, err = NewSample(d, 4)
	require.NoError(t, err)
	assert.Equal(t, 10*d.NumElements(), s.NumPoints())
	assert.Len(t, s.Tri, 9*d.NumElements())
	// Sub-triangles tile each element
	var area float64
	for _, tri := range s.Tri {
		area += math.Abs(signedArea(s.X[tri[0]], s.X[tri[1]], s.X[tri[2]]))
	}
	assert.InDelta(t, 1, area, 1e-13)
	min, max := s.Bounds()
	assert.Equal(t, [2]float64{0, 0}, min)
	assert.Equal(t, [2]float64{1, 1}, max)

	b := NewBasis(d)
	lhs := make([]float64, b.Len())
	for dof, v := range b.VertexOf {
		lhs[dof] = d.X[v][0] + d.X[v][1]
	}
	vals := s.Eval(b, lhs)
	sq := s.EvalFunc(b, lhs, func(u float64) float64 { return u * u })
	for p, x := range s.X {
		assert.InDelta(t, x[0]+x[1], vals[p], 1e-13)
		assert.InDelta(t, vals[p]*vals[p], sq[p], 1e-12)
	}
}
