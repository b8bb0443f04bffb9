package pitch

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-graindelay/dsp/interp"
)

const (
	defaultVarispeedWindow = 0.03
	minVarispeedWindow     = 0.005
	maxVarispeedWindow     = 0.2
	minVarispeedTaps       = 16
)

// Varispeed shifts pitch in the time domain by reading the buffer at rate
// factor through two taps half a window apart. Each tap's offset ramps
// across the window and wraps; a sine-squared crossfade hides the wrap.
//
// The whole buffer is known in advance, so taps read ahead of the output
// position. Reads past the end of the buffer are silent.
type Varispeed struct {
	sampleRate    float64
	windowSeconds float64
	window        int
	maxLen        int
	history       []float64
}

// NewVarispeed returns a shifter with a 30 ms crossfade window.
func NewVarispeed() *Varispeed {
	return &Varispeed{windowSeconds: defaultVarispeedWindow}
}

// WindowSeconds returns the configured crossfade window in seconds.
func (v *Varispeed) WindowSeconds() float64 { return v.windowSeconds }

// Window returns the prepared window length in samples.
func (v *Varispeed) Window() int { return v.window }

// SetWindowSeconds sets the crossfade window. Takes effect on the next Prepare.
func (v *Varispeed) SetWindowSeconds(seconds float64) error {
	if seconds < minVarispeedWindow || seconds > maxVarispeedWindow || math.IsNaN(seconds) {
		return fmt.Errorf("varispeed window must be in [%g, %g] s: %f",
			minVarispeedWindow, maxVarispeedWindow, seconds)
	}
	v.windowSeconds = seconds
	return nil
}

// Prepare sizes the history for buffers of up to maxLen samples. The window
// is limited to half of maxLen so both taps see real signal.
func (v *Varispeed) Prepare(sampleRate float64, maxLen int) error {
	if !isFinitePositive(sampleRate) {
		return fmt.Errorf("varispeed sample rate must be positive and finite: %f", sampleRate)
	}
	if maxLen <= 0 {
		return fmt.Errorf("varispeed length must be > 0: %d", maxLen)
	}

	w := int(math.Round(v.windowSeconds * sampleRate))
	v.window = max(minVarispeedTaps, min(w, max(minVarispeedTaps, maxLen/2)))
	v.sampleRate = sampleRate
	v.maxLen = maxLen
	if cap(v.history) < maxLen {
		v.history = make([]float64, maxLen)
	}
	v.history = v.history[:maxLen]

	return nil
}

// Shift pitch-shifts buf in place by factor, clamped to [0.25, 4].
func (v *Varispeed) Shift(buf []float64, factor float64) {
	n := len(buf)
	if n == 0 || isIdentityShift(factor) {
		return
	}
	if n > v.maxLen || v.window == 0 {
		sr := v.sampleRate
		if sr <= 0 {
			sr = 48000
		}
		if err := v.Prepare(sr, n); err != nil {
			return
		}
	}
	factor = clampShift(factor)

	hist := v.history[:n]
	copy(hist, buf)

	w := float64(v.window)
	inc := (factor - 1) / w
	phase := 0.0

	for i := range buf {
		p2 := phase + 0.5
		if p2 >= 1 {
			p2--
		}
		s1 := math.Sin(math.Pi * phase)
		s2 := math.Sin(math.Pi * p2)

		pos := float64(i)
		buf[i] = s1*s1*interp.At(hist, pos+phase*w) + s2*s2*interp.At(hist, pos+p2*w)

		phase += inc
		phase -= math.Floor(phase)
	}
}
