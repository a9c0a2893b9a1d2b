package fem

import "gonum.org/v1/gonum/num/dual"

// NumLocal is the number of DOFs of a linear triangle
const NumLocal = 3

// Dual carries a value and its derivatives with respect to the local DOFs of
// one element, as one seeded dual.Number per local DOF
type Dual struct {
	n [NumLocal]dual.Number
}

func Constant(v float64) (d Dual) {
	for a := range d.n {
		d.n[a].Real = v
	}
	return
}

// Variable is the value v of local DOF a
func Variable(v float64, a int) (d Dual) {
	d = Constant(v)
	d.n[a].Emag = 1
	return
}

func (x Dual) Value() float64 { return x.n[0].Real }

// Deriv is the derivative with respect to local DOF a
func (x Dual) Deriv(a int) float64 { return x.n[a].Emag }

func (x Dual) Gradient() (g [NumLocal]float64) {
	for a := range g {
		g[a] = x.n[a].Emag
	}
	return
}

func (x Dual) Add(y Dual) (z Dual) {
	for a := range z.n {
		z.n[a] = dual.Add(x.n[a], y.n[a])
	}
	return
}

func (x Dual) Sub(y Dual) (z Dual) {
	for a := range z.n {
		z.n[a] = dual.Sub(x.n[a], y.n[a])
	}
	return
}

func (x Dual) Mul(y Dual) (z Dual) {
	for a := range z.n {
		z.n[a] = dual.Mul(x.n[a], y.n[a])
	}
	return
}

func (x Dual) Scale(c float64) (z Dual) {
	for a := range z.n {
		z.n[a] = dual.Scale(c, x.n[a])
	}
	return
}

// Powi raises x to a non-negative integer power. Repeated products keep
// the derivative finite at zero, where dual.PowReal would not for n = 0.
func (x Dual) Powi(n int) (z Dual) {
	z = Constant(1)
	for i := 0; i < n; i++ {
		z = z.Mul(x)
	}
	return
}

// Dot2 is x0*y0 + x1*y1
func Dot2(x, y [2]Dual) Dual {
	return x[0].Mul(y[0]).Add(x[1].Mul(y[1]))
}

// DotConst2 is x0*c0 + x1*c1
func DotConst2(x [2]Dual, c [2]float64) Dual {
	return x[0].Scale(c[0]).Add(x[1].Scale(c[1]))
}
