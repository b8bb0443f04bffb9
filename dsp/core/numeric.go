package core

import "math"

const defaultEpsilon = 1e-12

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// InRange reports whether value is finite and inside [min, max].
func InRange(value, min, max float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}
	return value >= min && value <= max
}

// IsFinitePositive reports whether v is > 0 and neither NaN nor Inf.
func IsFinitePositive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// NearlyEqual reports whether a and b are equal within eps.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}

// FlushDenormals converts tiny denormal-like values to exact zero.
// Feedback loops decay towards zero forever without it.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// SecondsToSamples converts a duration to a whole number of samples,
// rounding up so the result always covers the requested time.
func SecondsToSamples(seconds, sampleRate float64) int {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return int(math.Ceil(seconds * sampleRate))
}

// DecayTime returns the time in seconds a feedback loop with the given
// period and gain takes to fall by floorDB (a negative dB value).
// Returns 0 for gain <= 0 and +Inf for gain >= 1.
func DecayTime(periodSeconds, gain, floorDB float64) float64 {
	if gain <= 0 || periodSeconds <= 0 {
		return 0
	}
	if gain >= 1 {
		return math.Inf(1)
	}
	repeats := floorDB / (20 * math.Log10(gain))
	return periodSeconds * math.Ceil(repeats)
}
