package interp

import "math"

// Linear2 interpolates between x0 and x1 at t in [0, 1].
func Linear2(t, x0, x1 float64) float64 {
	return x0 + t*(x1-x0)
}

// Hermite4 computes cubic 4-point interpolation.
// It interpolates from x0 to x1 using neighbor points xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}

// At returns x at fractional index pos using Hermite4. Indices outside
// [0, len(x)) read as 0.
func At(x []float64, pos float64) float64 {
	if len(x) == 0 || math.IsNaN(pos) {
		return 0
	}
	idx := int(math.Floor(pos))
	if idx < -2 || idx > len(x) {
		return 0
	}
	t := pos - float64(idx)
	if t == 0 {
		return sampleZero(x, idx)
	}
	return Hermite4(t,
		sampleZero(x, idx-1),
		sampleZero(x, idx),
		sampleZero(x, idx+1),
		sampleZero(x, idx+2),
	)
}

func sampleZero(x []float64, idx int) float64 {
	if idx < 0 || idx >= len(x) {
		return 0
	}
	return x[idx]
}
