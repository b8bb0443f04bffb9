package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	s := DeterministicSine(1000, 48000, 1.0, 48)
	if len(s) != 48 {
		t.Fatalf("len = %d, want 48", len(s))
	}
	if math.Abs(s[0]) > 1e-15 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
	for i, v := range s {
		if v < -1 || v > 1 {
			t.Fatalf("s[%d] = %v out of range", i, v)
		}
	}
}

func TestDeterministicNoiseReproducible(t *testing.T) {
	a := DeterministicNoise(42, 1.0, 64)
	b := DeterministicNoise(42, 1.0, 64)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic at index %d", i)
		}
	}
}

func TestImpulse(t *testing.T) {
	imp := Impulse(4, 2)
	if imp[2] != 1 || Energy(imp) != 1 {
		t.Fatalf("Impulse = %v", imp)
	}
	if Energy(Impulse(4, 9)) != 0 {
		t.Fatal("out of range impulse should be silent")
	}
}

func TestPlanarCopiesChannels(t *testing.T) {
	mono := Counter(1, 3)
	p := Planar(2, mono)
	p[0][0] = 9
	if p[1][0] != 1 || mono[0] != 1 {
		t.Fatal("Planar channels must not alias")
	}
}

func TestBlocks(t *testing.T) {
	b := Blocks(Counter(0, 10), 4)
	if len(b) != 3 || len(b[2]) != 2 || b[2][1] != 9 {
		t.Fatalf("Blocks = %v", b)
	}
}
