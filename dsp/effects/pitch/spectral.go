package pitch

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-graindelay/dsp/core"
	"github.com/cwbudde/algo-graindelay/dsp/window"
)

const (
	defaultSpectralMaxFrame = 1024
	minSpectralFrameSize    = 64
	maxSpectralFrameSize    = 16384
	spectralNormFloor       = 1e-12
)

// Spectral performs frequency-domain pitch shifting with a phase vocoder.
//
// Each frame's magnitudes and instantaneous frequencies are moved to bin
// k*factor with linear interpolation, and phases are re-accumulated per bin.
// The input is zero-padded to twice its length so the tail of the last
// frame is overlap-added before the result is cut back.
//
// The frame size is the prepared length rounded up to a power of two,
// bounded to [64, SetMaxFrameSize] (1024 by default). Hop is a quarter frame.
//
// This processor is mono, one-shot buffer oriented, and not thread-safe.
type Spectral struct {
	sampleRate   float64
	maxFrameSize int
	maxLen       int
	frameSize    int
	hop          int

	plan *algofft.Plan[complex128]

	window []float64
	omega  []float64

	prevPhase   []float64
	sumPhase    []float64
	magnitudes  []float64
	instFreqs   []float64
	shiftedMag  []float64
	shiftedFreq []float64

	spectrum []complex128
	frame    []complex128

	padded []float64
	output []float64
	norm   []float64
}

// NewSpectral returns an unprepared spectral shifter. Shift prepares it on
// first use; call Prepare up front to keep allocation off the audio path.
func NewSpectral() *Spectral {
	return &Spectral{maxFrameSize: defaultSpectralMaxFrame}
}

// SampleRate returns the prepared sample rate in Hz.
func (s *Spectral) SampleRate() float64 { return s.sampleRate }

// FrameSize returns the FFT frame size in samples.
func (s *Spectral) FrameSize() int { return s.frameSize }

// Hop returns the analysis/synthesis hop in samples.
func (s *Spectral) Hop() int { return s.hop }

// MaxLen returns the longest buffer Shift handles without reallocating.
func (s *Spectral) MaxLen() int { return s.maxLen }

// SetMaxFrameSize limits the FFT frame size. size must be a power of two in
// [64, 16384]. Takes effect on the next Prepare.
func (s *Spectral) SetMaxFrameSize(size int) error {
	if size < minSpectralFrameSize || size > maxSpectralFrameSize || size&(size-1) != 0 {
		return fmt.Errorf("spectral max frame size must be a power of two in [%d, %d]: %d",
			minSpectralFrameSize, maxSpectralFrameSize, size)
	}
	s.maxFrameSize = size
	return nil
}

// Prepare allocates plan and work buffers for inputs of up to maxLen samples.
func (s *Spectral) Prepare(sampleRate float64, maxLen int) error {
	if !isFinitePositive(sampleRate) {
		return fmt.Errorf("spectral shifter sample rate must be positive and finite: %f", sampleRate)
	}
	if maxLen <= 0 {
		return fmt.Errorf("spectral shifter length must be > 0: %d", maxLen)
	}

	frameSize := core.NextPowerOfTwo(maxLen)
	frameSize = max(minSpectralFrameSize, min(frameSize, s.maxFrameSize))

	if frameSize != s.frameSize || s.plan == nil {
		plan, err := algofft.NewPlan64(frameSize)
		if err != nil {
			return fmt.Errorf("spectral shifter: failed to create FFT plan: %w", err)
		}
		s.plan = plan
		s.frameSize = frameSize
		s.hop = frameSize / 4
		s.rebuildFrameState()
	}

	padded := 2 * maxLen
	frameCount := 1 + (padded-1)/s.hop
	outLen := (frameCount-1)*s.hop + s.frameSize

	s.padded = make([]float64, padded)
	s.output = make([]float64, outLen)
	s.norm = make([]float64, outLen)
	s.sampleRate = sampleRate
	s.maxLen = maxLen

	return nil
}

// Shift pitch-shifts buf in place by factor, clamped to [0.25, 4].
// A factor of 1 (or an invalid one) leaves buf untouched. Buffers longer
// than the prepared length trigger a re-Prepare.
func (s *Spectral) Shift(buf []float64, factor float64) {
	n := len(buf)
	if n == 0 || isIdentityShift(factor) {
		return
	}
	if n > s.maxLen {
		sr := s.sampleRate
		if sr <= 0 {
			sr = 48000
		}
		if err := s.Prepare(sr, n); err != nil {
			return
		}
	}
	factor = clampShift(factor)

	padded := s.padded[:2*n]
	copy(padded, buf)
	core.Zero(padded[n:])

	hop := s.hop
	frameCount := 1 + (len(padded)-1)/hop
	outLen := (frameCount-1)*hop + s.frameSize
	output := s.output[:outLen]
	norm := s.norm[:outLen]
	core.Zero(output)
	core.Zero(norm)
	core.Zero(s.prevPhase)
	core.Zero(s.sumPhase)

	for frame := range frameCount {
		pos := frame * hop
		if !s.shiftFrame(padded, pos, factor) {
			return
		}
		for i, w := range s.window {
			output[pos+i] += real(s.frame[i]) * w
			norm[pos+i] += w * w
		}
	}

	for i := range buf {
		if norm[i] > spectralNormFloor {
			buf[i] = output[i] / norm[i]
		} else {
			buf[i] = 0
		}
	}
}

// shiftFrame analyses the frame at pos, moves its bins by factor and leaves
// the resynthesised (unwindowed) frame in s.frame.
func (s *Spectral) shiftFrame(input []float64, pos int, factor float64) bool {
	for i := range s.frameSize {
		x := 0.0
		if idx := pos + i; idx < len(input) {
			x = input[idx]
		}
		s.spectrum[i] = complex(x*s.window[i], 0)
	}

	if err := s.plan.Forward(s.spectrum, s.spectrum); err != nil {
		return false
	}

	half := s.frameSize / 2
	hopF := float64(s.hop)

	for k := 0; k <= half; k++ {
		re := real(s.spectrum[k])
		im := imag(s.spectrum[k])
		s.magnitudes[k] = spectralMagnitude(re, im)
		phase := math.Atan2(im, re)

		delta := wrapPhase(phase - s.prevPhase[k] - s.omega[k]*hopF)
		s.instFreqs[k] = s.omega[k] + delta/hopF
		s.prevPhase[k] = phase
	}

	for k := 0; k <= half; k++ {
		srcK := float64(k) / factor
		if srcK >= float64(half) {
			s.shiftedMag[k] = 0
			s.shiftedFreq[k] = s.omega[k]
			continue
		}
		lo := int(srcK)
		frac := srcK - float64(lo)
		hi := min(lo+1, half)
		s.shiftedMag[k] = s.magnitudes[lo]*(1-frac) + s.magnitudes[hi]*frac
		s.shiftedFreq[k] = (s.instFreqs[lo]*(1-frac) + s.instFreqs[hi]*frac) * factor
	}

	for k := 0; k <= half; k++ {
		s.sumPhase[k] += s.shiftedFreq[k] * hopF
		s.spectrum[k] = complex(
			s.shiftedMag[k]*math.Cos(s.sumPhase[k]),
			s.shiftedMag[k]*math.Sin(s.sumPhase[k]),
		)
	}

	// Hermitian mirror for a real-valued inverse.
	s.spectrum[0] = complex(real(s.spectrum[0]), 0)
	s.spectrum[half] = complex(real(s.spectrum[half]), 0)
	for k := 1; k < half; k++ {
		v := s.spectrum[k]
		s.spectrum[s.frameSize-k] = complex(real(v), -imag(v))
	}

	return s.plan.Inverse(s.frame, s.spectrum) == nil
}

func (s *Spectral) rebuildFrameState() {
	n := s.frameSize
	bins := n/2 + 1

	// Frame sizes are at least minSpectralFrameSize, so Hann cannot fail.
	s.window, _ = window.Hann(n, window.WithPeriodic())

	s.omega = make([]float64, bins)
	for k := range s.omega {
		s.omega[k] = 2 * math.Pi * float64(k) / float64(n)
	}

	s.prevPhase = make([]float64, bins)
	s.sumPhase = make([]float64, bins)
	s.magnitudes = make([]float64, bins)
	s.instFreqs = make([]float64, bins)
	s.shiftedMag = make([]float64, bins)
	s.shiftedFreq = make([]float64, bins)
	s.spectrum = make([]complex128, n)
	s.frame = make([]complex128, n)
}

func wrapPhase(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x - math.Pi
}
