// Package dither quantizes normalized samples to integer PCM with optional
// dither noise and first-order noise shaping.
package dither

import "fmt"

// Type selects the probability distribution of the dither noise.
type Type int

const (
	// None rounds to the nearest step without noise.
	None Type = iota
	// Rectangular adds uniform noise of one step peak to peak.
	Rectangular
	// Triangular adds TPDF noise of two steps peak to peak.
	Triangular

	typeCount
)

var typeNames = [typeCount]string{"none", "rectangular", "triangular"}

func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Valid reports whether t is a known dither type.
func (t Type) Valid() bool {
	return t >= 0 && t < typeCount
}

// ParseType maps a lower-case name back to its Type.
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	return None, fmt.Errorf("dither: unknown type %q", name)
}
