// Package buffer provides a multichannel float64 block buffer for
// allocation-friendly block processing. DSP functions accept raw
// [][]float64 / []float64 slices; Buffer owns the backing storage and
// hands out per-channel views so hot paths never allocate.
package buffer
