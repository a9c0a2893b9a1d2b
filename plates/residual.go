package plates

import (
	"math"

	"github.com/injectionflow/platedist/fem"
)

// Residual is the weak form of the flow distance equation for G = 1/(d + 1/G0)
//
//	∫ (1-σ) ∇G·∇G φ - σ G ∇G·∇φ - (1+2σ) G^4 φ dV
//
// Reaction scales the G^4 term and is 1 outside of tests.
type Residual struct {
	Sigma    float64
	Reaction float64
}

func NewResidual(sigma float64) Residual {
	return Residual{Sigma: sigma, Reaction: 1}
}

func (r Residual) Integrand(x [2]float64, G fem.Dual, gradG [2]fem.Dual, phi float64, gradPhi [2]float64) fem.Dual {
	var (
		s         = r.Sigma
		transport = fem.Dot2(gradG, gradG).Scale((1 - s) * phi)
		diffusion = G.Mul(fem.DotConst2(gradG, gradPhi)).Scale(s)
		reaction  = G.Powi(4).Scale(r.Reaction * (1 + 2*s) * phi)
	)
	return transport.Sub(diffusion).Sub(reaction)
}

// Distance policies applied to D = 1/G - 1/G0
type Policy func(G, G0 float64) float64

// Propagate keeps the IEEE result of the division
func Propagate(G, G0 float64) float64 { return 1/G - 1/G0 }

// Mask returns NaN where |G| < eps
func Mask(eps float64) Policy {
	return func(G, G0 float64) float64 {
		if math.Abs(G) < eps || math.IsNaN(G) {
			return math.NaN()
		}
		return 1/G - 1/G0
	}
}

// Clamp raises |G| to eps keeping its sign
func Clamp(eps float64) Policy {
	return func(G, G0 float64) float64 {
		if math.Abs(G) < eps {
			G = math.Copysign(eps, G)
		}
		return 1/G - 1/G0
	}
}
