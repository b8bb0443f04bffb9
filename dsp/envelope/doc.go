// Package envelope provides amplitude envelopes applied to sample blocks.
//
// ADSR is a linear attack/decay/sustain/release generator. It is driven
// by NoteOn/NoteOff and can be stepped per sample or applied to a planar
// multichannel block, every channel sharing the same gain curve.
package envelope
