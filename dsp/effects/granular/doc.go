// Package granular schedules, captures and plays back grains: short
// enveloped snippets of delay-line history mixed into a wet buffer.
//
// A Scheduler spawns grains on a jittered period, captures each one from
// the delay lines once its source window is fully written, and plays it
// back delayNumSamples after its source position. Grain audio lives in a
// preallocated slot arena, so Process does not allocate.
//
// Envelope shaping and pitch shifting are pluggable through the
// EnvelopeGenerator and PitchShifter interfaces. The defaults are
// envelope.ADSR and pitch.Spectral.
package granular
