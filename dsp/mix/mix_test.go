package mix

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-graindelay/internal/testutil"
)

func TestKernelNameGeneric(t *testing.T) {
	if KernelName() == "" {
		t.Fatal("no kernel selected")
	}
}

func TestAddScaled(t *testing.T) {
	for _, n := range []int{0, 1, 3, 4, 7, 64} {
		dst := testutil.Counter(1, n)
		src := testutil.DC(2, n)
		AddScaled(dst, src, 0.5)

		want := testutil.Counter(2, n)
		testutil.RequireSliceNearlyEqual(t, dst, want, 1e-15)
	}
}

func TestAddScaledClampsToShorter(t *testing.T) {
	dst := []float64{1, 1, 1}
	AddScaled(dst, []float64{1}, 1)
	testutil.RequireSliceNearlyEqual(t, dst, []float64{2, 1, 1}, 0)

	short := []float64{0, 0}
	AddScaled(short, []float64{1, 1, 1, 1}, 1)
	testutil.RequireSliceNearlyEqual(t, short, []float64{1, 1}, 0)
}

func TestApplyGainRampIsLinear(t *testing.T) {
	const n = 512
	buf := testutil.DC(1, n)
	ApplyGainRamp(buf, 0.8, 0.6)

	if buf[0] != 0.8 {
		t.Fatalf("first gain = %v, want 0.8", buf[0])
	}
	step := (0.6 - 0.8) / n
	for i := 1; i < n; i++ {
		if d := buf[i] - buf[i-1]; math.Abs(d-step) > 1e-12 {
			t.Fatalf("gain step at %d = %v, want %v", i, d, step)
		}
	}
	// Ramp ends one step short of the target; the next block starts there.
	if got := buf[n-1] + step; math.Abs(got-0.6) > 1e-12 {
		t.Fatalf("ramp end = %v, want 0.6", got)
	}
}

func TestApplyGainConstant(t *testing.T) {
	buf := testutil.Counter(0, 5)
	ApplyGain(buf, 0.5)
	testutil.RequireSliceNearlyEqual(t, buf, []float64{0, 0.5, 1, 1.5, 2}, 0)

	unity := testutil.Counter(0, 5)
	ApplyGain(unity, 1)
	testutil.RequireSliceNearlyEqual(t, unity, testutil.Counter(0, 5), 0)

	ApplyGainRamp(nil, 0, 1)
}

func BenchmarkAddScaled512(b *testing.B) {
	dst := make([]float64, 512)
	src := testutil.DeterministicNoise(3, 1, 512)

	b.SetBytes(int64(len(dst) * 8 * 2))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		AddScaled(dst, src, 0.25)
	}
}

func BenchmarkApplyGainRamp512(b *testing.B) {
	buf := testutil.DC(1, 512)

	b.SetBytes(int64(len(buf) * 8))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		ApplyGainRamp(buf, 0.999, 1.0)
	}
}
