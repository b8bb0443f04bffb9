//go:build fastmath

package pitch

import "github.com/meko-christian/algo-approx"

// spectralMagnitude uses a fast square root; the phase vocoder tolerates
// the small magnitude error.
func spectralMagnitude(re, im float64) float64 {
	return approx.FastSqrt(re*re + im*im)
}
