package utils

import "math"

// CountNonFinite returns the number of NaN and Inf entries
func CountNonFinite(v []float64) (nNaN, nInf int) {
	for _, f := range v {
		switch {
		case math.IsNaN(f):
			nNaN++
		case math.IsInf(f, 0):
			nInf++
		}
	}
	return
}
