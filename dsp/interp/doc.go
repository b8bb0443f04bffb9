// Package interp provides fractional-position interpolation primitives used
// by delay-based DSP blocks.
//
// Available methods, from cheapest to highest quality:
//
//   - [Linear2]:  2-point linear interpolation
//   - [Hermite4]: 4-point cubic Hermite (good default)
//
// [At] reads a slice at a fractional index with Hermite interpolation,
// treating samples outside the slice as silence.
package interp
