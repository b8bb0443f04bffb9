// Package pitch provides in-place pitch shifters for short, fully captured
// buffers such as grains.
//
// Included processors:
//   - Spectral: frequency-domain phase-vocoder shifter (bin shifting).
//   - Varispeed: time-domain two-tap delay shifter with sine-squared crossfades.
//   - Shifter: shared interface for interchangeable shifters.
//
// Both processors allocate in Prepare and are allocation-free in Shift for
// buffers up to the prepared length.
package pitch
