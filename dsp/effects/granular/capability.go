package granular

import (
	"github.com/cwbudde/algo-graindelay/dsp/effects/pitch"
	"github.com/cwbudde/algo-graindelay/dsp/envelope"
)

// EnvelopeGenerator shapes captured grain audio.
//
// Capture calls Reset, SetParameters and NoteOn, applies the envelope to
// the attack+decay segment, then calls NoteOff and applies the rest.
type EnvelopeGenerator interface {
	SetParameters(p envelope.Params)
	Reset()
	NoteOn()
	NoteOff()
	Apply(buf [][]float64, start, n int)
}

// PitchShifter transposes a captured channel in place.
type PitchShifter interface {
	Prepare(sampleRate float64, maxLen int) error
	Shift(buf []float64, factor float64)
}

// RandomSource yields uniform values in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

var (
	_ EnvelopeGenerator = (*envelope.ADSR)(nil)
	_ PitchShifter      = (*pitch.Spectral)(nil)
	_ PitchShifter      = (*pitch.Varispeed)(nil)
)
