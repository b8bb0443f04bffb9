package envelope

import (
	"fmt"
	"math"
)

// Params holds envelope timing in seconds and the sustain level in [0, 1].
type Params struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// Validate checks that times are finite and non-negative and that the
// sustain level is in [0, 1].
func (p Params) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"attack", p.Attack},
		{"decay", p.Decay},
		{"release", p.Release},
	} {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("envelope %s must be >= 0 and finite: %f", f.name, f.value)
		}
	}
	if p.Sustain < 0 || p.Sustain > 1 || math.IsNaN(p.Sustain) {
		return fmt.Errorf("envelope sustain must be in [0, 1]: %f", p.Sustain)
	}
	return nil
}

// Stage is the current envelope segment.
type Stage int

const (
	StageIdle Stage = iota
	StageAttack
	StageDecay
	StageSustain
	StageRelease
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAttack:
		return "attack"
	case StageDecay:
		return "decay"
	case StageSustain:
		return "sustain"
	case StageRelease:
		return "release"
	default:
		return "unknown"
	}
}

// ADSR is a linear-segment envelope generator.
//
// Attack rises from 0 to 1, decay falls to the sustain level, sustain
// holds, and release falls from whatever level NoteOff found to 0 over the
// release time. Zero-length segments are skipped.
//
// ADSR is not thread-safe.
type ADSR struct {
	sampleRate float64
	params     Params

	stage       Stage
	level       float64
	attackRate  float64
	decayRate   float64
	releaseRate float64
}

// NewADSR creates an idle envelope for the given sample rate.
func NewADSR(sampleRate float64) (*ADSR, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("adsr sample rate must be > 0: %f", sampleRate)
	}
	a := &ADSR{sampleRate: sampleRate}
	a.SetParameters(Params{Sustain: 1})
	return a, nil
}

// SampleRate returns the sample rate in Hz.
func (a *ADSR) SampleRate() float64 { return a.sampleRate }

// Parameters returns the current timing.
func (a *ADSR) Parameters() Params { return a.params }

// Stage returns the active segment.
func (a *ADSR) Stage() Stage { return a.stage }

// Level returns the most recent envelope value.
func (a *ADSR) Level() float64 { return a.level }

// SetSampleRate updates the sample rate and recomputes segment rates.
func (a *ADSR) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("adsr sample rate must be > 0: %f", sampleRate)
	}
	a.sampleRate = sampleRate
	a.recalculateRates()
	return nil
}

// SetParameters replaces the timing. Invalid values are clamped: negative
// times become 0 and the sustain level is limited to [0, 1].
func (a *ADSR) SetParameters(p Params) {
	p.Attack = math.Max(p.Attack, 0)
	p.Decay = math.Max(p.Decay, 0)
	p.Release = math.Max(p.Release, 0)
	p.Sustain = math.Min(math.Max(p.Sustain, 0), 1)
	a.params = p
	a.recalculateRates()
}

// Reset returns to idle at level 0.
func (a *ADSR) Reset() {
	a.stage = StageIdle
	a.level = 0
}

// NoteOn starts the attack segment.
func (a *ADSR) NoteOn() {
	switch {
	case a.attackRate > 0:
		a.stage = StageAttack
	case a.decayRate > 0:
		a.level = 1
		a.stage = StageDecay
	default:
		a.level = a.params.Sustain
		a.stage = StageSustain
	}
}

// NoteOff starts the release segment from the current level.
func (a *ADSR) NoteOff() {
	if a.stage == StageIdle {
		return
	}
	if a.params.Release > 0 {
		a.releaseRate = a.level / (a.params.Release * a.sampleRate)
		a.stage = StageRelease
		return
	}
	a.Reset()
}

// Next advances one sample and returns the new level.
func (a *ADSR) Next() float64 {
	switch a.stage {
	case StageIdle:
		return 0
	case StageAttack:
		a.level += a.attackRate
		if a.level >= 1 {
			a.level = 1
			a.enterDecay()
		}
	case StageDecay:
		a.level -= a.decayRate
		if a.level <= a.params.Sustain {
			a.level = a.params.Sustain
			a.stage = StageSustain
		}
	case StageSustain:
		a.level = a.params.Sustain
	case StageRelease:
		a.level -= a.releaseRate
		if a.level <= 0 {
			a.Reset()
		}
	}
	return a.level
}

// Apply multiplies n samples of every channel starting at start by the
// envelope, advancing it n samples. Ranges past a channel's end are
// clipped.
func (a *ADSR) Apply(buf [][]float64, start, n int) {
	if start < 0 || n <= 0 {
		return
	}
	for i := start; i < start+n; i++ {
		gain := a.Next()
		for _, ch := range buf {
			if i < len(ch) {
				ch[i] *= gain
			}
		}
	}
}

func (a *ADSR) enterDecay() {
	if a.decayRate > 0 {
		a.stage = StageDecay
		return
	}
	a.level = a.params.Sustain
	a.stage = StageSustain
}

func (a *ADSR) recalculateRates() {
	a.attackRate = segmentRate(1, a.params.Attack, a.sampleRate)
	a.decayRate = segmentRate(1-a.params.Sustain, a.params.Decay, a.sampleRate)
	if a.stage == StageRelease {
		a.releaseRate = segmentRate(a.level, a.params.Release, a.sampleRate)
	}
}

// segmentRate returns the per-sample step covering distance in seconds,
// or 0 for an instantaneous segment.
func segmentRate(distance, seconds, sampleRate float64) float64 {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return distance / (seconds * sampleRate)
}
