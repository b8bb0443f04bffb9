package granular

import (
	"math"

	"github.com/cwbudde/algo-graindelay/dsp/core"
	"github.com/cwbudde/algo-graindelay/dsp/delay"
	"github.com/cwbudde/algo-graindelay/dsp/envelope"
	"github.com/cwbudde/algo-graindelay/dsp/mix"
)

// PitchShiftFactor is the transposition applied to pitch-shifted grains.
const PitchShiftFactor = 1.5

// GrainLength returns the grain length in samples for env at sampleRate.
//
// The length is ceil((attack + decay + decay) * sampleRate). Release does
// not enter the length; the release segment is cut off where the grain
// ends.
func GrainLength(env envelope.Params, sampleRate float64) int {
	return core.SecondsToSamples(env.Attack+env.Decay+env.Decay, sampleRate)
}

// noteOffSample returns where the envelope leaves its attack+decay segment.
func noteOffSample(env envelope.Params, sampleRate float64, length int) int {
	return min(core.SecondsToSamples(env.Attack+env.Decay, sampleRate), length)
}

// Grain is one enveloped snippet of delay-line history.
//
// sampleOffset is where the grain's source window begins, relative to the
// start of the current block. It is aged by the block length after every
// block. Playback starts delayNumSamples after the source position.
//
// Audio is captured exactly once and is immutable afterwards. progress
// counts samples already mixed and never exceeds Length.
type Grain struct {
	sampleOffset    int
	delayNumSamples int
	length          int
	noteOff         int
	env             envelope.Params
	reversed        bool
	pitchShift      bool

	state    State
	progress int

	// buf holds one slice per channel with capacity >= length.
	buf [][]float64
}

// NewGrain returns a scheduled grain with its own storage for channels.
// Grains owned by a Scheduler live in its slot arena instead.
func NewGrain(sampleOffset, delayNumSamples int, env envelope.Params, sampleRate float64,
	channels int, reversed, pitchShift bool,
) *Grain {
	g := &Grain{}
	g.init(sampleOffset, delayNumSamples, env, sampleRate, reversed, pitchShift)
	g.ensureCapacity(max(channels, 1), g.length)
	return g
}

func (g *Grain) init(sampleOffset, delayNumSamples int, env envelope.Params, sampleRate float64,
	reversed, pitchShift bool,
) {
	g.sampleOffset = sampleOffset
	g.delayNumSamples = delayNumSamples
	g.env = env
	g.length = GrainLength(env, sampleRate)
	g.noteOff = noteOffSample(env, sampleRate, g.length)
	g.reversed = reversed
	g.pitchShift = pitchShift
	g.state = StateScheduled
	g.progress = 0
}

// ensureCapacity grows the per-channel storage, keeping existing content.
func (g *Grain) ensureCapacity(channels, frames int) {
	for len(g.buf) < channels {
		g.buf = append(g.buf, nil)
	}
	for ch := range g.buf {
		if cap(g.buf[ch]) >= frames {
			continue
		}
		grown := make([]float64, frames)
		copy(grown, g.buf[ch])
		g.buf[ch] = grown
	}
}

// State returns the lifecycle stage.
func (g *Grain) State() State { return g.state }

// Progress returns the number of samples already mixed.
func (g *Grain) Progress() int { return g.progress }

// Length returns the grain length in samples.
func (g *Grain) Length() int { return g.length }

// SampleOffset returns the source start relative to the current block.
func (g *Grain) SampleOffset() int { return g.sampleOffset }

// DelayNumSamples returns the distance between source and playback.
func (g *Grain) DelayNumSamples() int { return g.delayNumSamples }

// PlaybackStart returns the first playback sample relative to the current
// block.
func (g *Grain) PlaybackStart() int { return g.sampleOffset + g.delayNumSamples }

// Envelope returns the envelope timing chosen at spawn.
func (g *Grain) Envelope() envelope.Params { return g.env }

// Reversed reports whether captured audio is played backwards.
func (g *Grain) Reversed() bool { return g.reversed }

// PitchShifted reports whether captured audio is transposed by
// PitchShiftFactor.
func (g *Grain) PitchShifted() bool { return g.pitchShift }

// Samples returns the captured audio of channel ch, or nil before capture.
// The slice must not be modified.
func (g *Grain) Samples(ch int) []float64 {
	if g.state == StateScheduled || ch < 0 || ch >= len(g.buf) {
		return nil
	}
	return g.buf[ch][:g.length:g.length]
}

// sourceOffset returns the capture window's distance behind the newest
// written sample, assuming history is written up to the block start.
func (g *Grain) sourceOffset() int {
	return -(g.sampleOffset + g.length)
}

// inPast reports whether the whole source window precedes the block start.
func (g *Grain) inPast() bool {
	return g.length+g.sampleOffset < 0
}

// Capture copies the source window from lines, one per channel, into the
// grain, then reverses, envelopes and pitch-shifts it as configured.
//
// offsetBehindHead locates the newest sample of the window relative to the
// newest sample in each line. Capture returns false and leaves the grain
// untouched when it was already captured or when any line has not written
// the full window. shifter may be nil.
func (g *Grain) Capture(lines []*delay.Line, offsetBehindHead int, env EnvelopeGenerator, shifter PitchShifter) bool {
	if g.state != StateScheduled || len(lines) == 0 || len(lines) > len(g.buf) {
		return false
	}
	for _, line := range lines {
		if !line.Filled(offsetBehindHead, g.length) {
			return false
		}
	}

	bufs := g.buf[:len(lines)]
	for ch, line := range lines {
		bufs[ch] = bufs[ch][:g.length]
		copy(bufs[ch], line.Window(offsetBehindHead, g.length))
		if g.reversed {
			core.Reverse(bufs[ch])
		}
	}
	for ch := len(lines); ch < len(g.buf); ch++ {
		g.buf[ch] = g.buf[ch][:g.length]
		core.Zero(g.buf[ch])
	}

	if env != nil {
		env.Reset()
		env.SetParameters(g.env)
		env.NoteOn()
		env.Apply(bufs, 0, g.noteOff)
		env.NoteOff()
		env.Apply(bufs, g.noteOff, g.length-g.noteOff)
	}

	if g.pitchShift && shifter != nil {
		for _, ch := range bufs {
			shifter.Shift(ch, PitchShiftFactor)
		}
	}

	g.state = StateCaptured
	return true
}

// Process accumulates the next part of the grain into out, scaled by gain,
// starting at out[ch][startSample]. It writes
// min(len(out[ch])-startSample, Length-Progress) samples per channel,
// advances progress by that count and returns it.
//
// Nothing is written before capture or after the grain is exhausted.
// Reaching the end moves the grain to StateFinished.
func (g *Grain) Process(out [][]float64, gain float64, startSample int) int {
	switch g.state {
	case StateScheduled, StateFinished:
		return 0
	case StateCaptured, StatePlaying:
	}

	remaining := g.length - g.progress
	if remaining <= 0 {
		g.state = StateFinished
		return 0
	}
	if len(out) == 0 || startSample < 0 || startSample >= len(out[0]) {
		return 0
	}
	g.state = StatePlaying

	n := min(len(out[0])-startSample, remaining)
	channels := min(len(out), len(g.buf))
	for ch := range channels {
		dst := out[ch]
		if len(dst) < startSample+n {
			continue
		}
		mix.AddScaled(dst[startSample:startSample+n], g.buf[ch][g.progress:g.progress+n], gain)
	}

	g.progress += n
	if g.progress == g.length {
		g.state = StateFinished
	}
	return n
}

// finish discards the grain without producing audio.
func (g *Grain) finish() {
	g.state = StateFinished
}

// age shifts the grain's block-relative position by one block.
func (g *Grain) age(numSamples int) {
	g.sampleOffset -= numSamples
}

// fits reports whether the source window can ever be served by lines.
func (g *Grain) fits(lines []*delay.Line, offsetBehindHead int) bool {
	for _, line := range lines {
		if offsetBehindHead+g.length > line.Len() || int64(offsetBehindHead+g.length) > line.Written() {
			return false
		}
	}
	return true
}

// clampedGain keeps NaN and infinite gains out of the mix.
func clampedGain(gain float64) float64 {
	if math.IsNaN(gain) || math.IsInf(gain, 0) {
		return 0
	}
	return gain
}
