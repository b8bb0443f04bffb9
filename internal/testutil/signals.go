// Package testutil holds deterministic signals and tolerance checks shared
// by package tests.
package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Counter returns [start, start+1, ...] of the given length. Useful for
// checking that audio was moved without being altered.
func Counter(start float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

// Planar builds a channels x frames block where every channel is a copy of
// mono.
func Planar(channels int, mono []float64) [][]float64 {
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = append([]float64(nil), mono...)
	}
	return out
}

// Blocks splits signal into consecutive blocks of size n; the last block
// may be shorter.
func Blocks(signal []float64, n int) [][]float64 {
	var out [][]float64
	for start := 0; start < len(signal); start += n {
		end := min(start+n, len(signal))
		out = append(out, signal[start:end])
	}
	return out
}
