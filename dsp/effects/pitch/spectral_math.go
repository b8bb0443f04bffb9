//go:build !fastmath

package pitch

import "math"

func spectralMagnitude(re, im float64) float64 {
	return math.Hypot(re, im)
}
