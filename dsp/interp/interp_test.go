package interp

import "testing"

func TestHermite4IdentityOnLinearRamp(t *testing.T) {
	xm1, x0, x1, x2 := -1.0, 0.0, 1.0, 2.0
	for _, tc := range []struct {
		t float64
		w float64
	}{
		{t: 0.0, w: 0.0},
		{t: 0.25, w: 0.25},
		{t: 0.5, w: 0.5},
		{t: 1.0, w: 1.0},
	} {
		got := Hermite4(tc.t, xm1, x0, x1, x2)
		if diff := got - tc.w; diff < -1e-12 || diff > 1e-12 {
			t.Fatalf("t=%v: got %v want %v", tc.t, got, tc.w)
		}
	}
}

func TestLinear2(t *testing.T) {
	if got := Linear2(0.25, 2, 4); got != 2.5 {
		t.Fatalf("got %v want 2.5", got)
	}
}

func TestAt(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5}
	tests := []struct {
		pos  float64
		want float64
	}{
		{2, 2},
		{2.5, 2.5},
		{3.25, 3.25},
		{-5, 0},
		{10, 0},
	}
	for _, tt := range tests {
		got := At(x, tt.pos)
		if diff := got - tt.want; diff < -1e-12 || diff > 1e-12 {
			t.Fatalf("At(%v) = %v, want %v", tt.pos, got, tt.want)
		}
	}
	if At(nil, 0) != 0 {
		t.Fatal("empty slice should read as silence")
	}
}
