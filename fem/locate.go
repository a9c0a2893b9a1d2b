package fem

import (
	"fmt"
	"math"
)

// Location is a point in element Elem, at reference coordinates Xi
type Location struct {
	Elem     int
	Xi       [2]float64
	X        [2]float64
	Distance float64 // From the requested point, zero when it lies inside
}

const insideEps = 1e-10

// Locate finds the element containing (x, y). A point outside the domain
// is projected onto the closest element when it is within tol.
func (d *Domain) Locate(x, y, tol float64) (loc Location, err error) {
	p := [2]float64{x, y}
	for k := range d.Tri {
		xi := d.Barycentric(k, p)
		if xi[0] >= -insideEps && xi[1] >= -insideEps && 1-xi[0]-xi[1] >= -insideEps {
			return Location{Elem: k, Xi: clampReference(xi), X: p}, nil
		}
	}
	best := math.Inf(1)
	for k, t := range d.Tri {
		for e := 0; e < 3; e++ {
			q := closestOnSegment(p, d.X[t[e]], d.X[t[(e+1)%3]])
			if dist := math.Hypot(q[0]-p[0], q[1]-p[1]); dist < best {
				best = dist
				loc = Location{Elem: k, X: q, Distance: dist}
			}
		}
	}
	if best > tol {
		return Location{}, fmt.Errorf("%w: (%g, %g) is %g from the domain, tolerance %g",
			ErrLocationNotFound, x, y, best, tol)
	}
	loc.Xi = clampReference(d.Barycentric(loc.Elem, loc.X))
	return loc, nil
}

func closestOnSegment(p, a, b [2]float64) [2]float64 {
	var (
		ab = [2]float64{b[0] - a[0], b[1] - a[1]}
		l2 = ab[0]*ab[0] + ab[1]*ab[1]
		t  = ((p[0]-a[0])*ab[0] + (p[1]-a[1])*ab[1]) / l2
	)
	t = math.Max(0, math.Min(1, t))
	return [2]float64{a[0] + t*ab[0], a[1] + t*ab[1]}
}

// clampReference removes round off that puts a point just outside the
// reference triangle
func clampReference(xi [2]float64) [2]float64 {
	xi[0] = math.Max(0, xi[0])
	xi[1] = math.Max(0, xi[1])
	if s := xi[0] + xi[1]; s > 1 {
		xi[0] /= s
		xi[1] /= s
	}
	return xi
}

// Support returns the DOFs whose basis function is non-zero at the location
func (loc Location) Support(b *Basis) (dofs []int) {
	phi := b.Eval(loc.Elem, loc.Xi)
	for a, dof := range b.Dofs(loc.Elem) {
		if math.Abs(phi[a]) > 1e-12 {
			dofs = append(dofs, dof)
		}
	}
	return
}
