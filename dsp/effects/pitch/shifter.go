package pitch

import "math"

const (
	minShiftFactor = 0.25
	maxShiftFactor = 4.0

	shiftIdentityEps = 1e-9
)

// Shifter is the shared API for interchangeable in-place pitch shifters.
//
// Prepare sizes internal storage for buffers of up to maxLen samples.
// Shift transposes buf by factor (1.5 = a fifth up) without changing its
// length.
type Shifter interface {
	Prepare(sampleRate float64, maxLen int) error
	Shift(buf []float64, factor float64)
}

var (
	_ Shifter = (*Spectral)(nil)
	_ Shifter = (*Varispeed)(nil)
)

// isIdentityShift reports whether factor leaves audio unchanged or cannot
// be applied.
func isIdentityShift(factor float64) bool {
	return math.Abs(factor-1) <= shiftIdentityEps || math.IsNaN(factor) || factor <= 0
}

func clampShift(factor float64) float64 {
	return math.Min(math.Max(factor, minShiftFactor), maxShiftFactor)
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
