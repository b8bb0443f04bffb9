package testutil

import (
	"fmt"
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t at the first index where got and want
// differ by more than eps, or if their lengths differ.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		if d := math.Abs(got[i] - want[i]); d > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], d, eps)
		}
	}
}

// RequireFinite fails t on the first NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// RequireSilent fails t on the first sample that is not exactly zero.
func RequireSilent(t *testing.T, data []float64) {
	t.Helper()
	if i := Onset(data, 0); i >= 0 {
		t.Fatalf("index %d: got %v, want silence", i, data[i])
	}
}

// Onset returns the index of the first sample whose magnitude exceeds
// threshold, or -1.
func Onset(data []float64, threshold float64) int {
	for i, v := range data {
		if math.Abs(v) > threshold {
			return i
		}
	}
	return -1
}

// MaxAbsDiff returns the largest absolute element difference of a and b.
func MaxAbsDiff(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}
	var worst float64
	for i := range a {
		worst = max(worst, math.Abs(a[i]-b[i]))
	}
	return worst, nil
}

// Energy returns the sum of squares of data.
func Energy(data []float64) float64 {
	var e float64
	for _, v := range data {
		e += v * v
	}
	return e
}
