package dither

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	minBitDepth = 2
	maxBitDepth = 32
)

type config struct {
	ditherType Type
	shaping    bool
	rng        *rand.Rand
}

// Option configures a [Quantizer].
type Option func(*config) error

// WithType sets the dither noise PDF (default [None]).
func WithType(t Type) Option {
	return func(cfg *config) error {
		if !t.Valid() {
			return fmt.Errorf("dither: invalid type: %d", t)
		}
		cfg.ditherType = t
		return nil
	}
}

// WithNoiseShaping feeds each quantization error back into the next sample,
// moving the noise floor toward high frequencies.
func WithNoiseShaping(enabled bool) Option {
	return func(cfg *config) error {
		cfg.shaping = enabled
		return nil
	}
}

// WithSeed makes the dither noise reproducible.
func WithSeed(seed uint64) Option {
	return func(cfg *config) error {
		cfg.rng = rand.New(rand.NewPCG(seed, 0))
		return nil
	}
}

// Quantizer maps samples in [-1, 1] to signed integers of a fixed bit depth.
// Values beyond full scale are clipped. A Quantizer carries shaping state
// and serves a single channel.
type Quantizer struct {
	bitDepth   int
	ditherType Type
	shaping    bool
	rng        *rand.Rand

	scale   float64
	lo, hi  float64
	lastErr float64
	clipped int
}

// NewQuantizer creates a quantizer for bitDepth-bit signed PCM.
func NewQuantizer(bitDepth int, opts ...Option) (*Quantizer, error) {
	if bitDepth < minBitDepth || bitDepth > maxBitDepth {
		return nil, fmt.Errorf("dither: bit depth must be in [%d, %d]: %d", minBitDepth, maxBitDepth, bitDepth)
	}

	var cfg config
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	scale := math.Ldexp(1, bitDepth-1)
	return &Quantizer{
		bitDepth:   bitDepth,
		ditherType: cfg.ditherType,
		shaping:    cfg.shaping,
		rng:        cfg.rng,
		scale:      scale,
		lo:         -scale,
		hi:         scale - 1,
	}, nil
}

// BitDepth returns the target bit depth.
func (q *Quantizer) BitDepth() int { return q.bitDepth }

// Type returns the dither noise PDF.
func (q *Quantizer) Type() Type { return q.ditherType }

// Scale returns the value of full scale in integer steps.
func (q *Quantizer) Scale() float64 { return q.scale }

// Clipped returns how many samples hit the integer range since the last
// Reset.
func (q *Quantizer) Clipped() int { return q.clipped }

// Quantize converts one sample. NaN maps to zero.
func (q *Quantizer) Quantize(v float64) int {
	if math.IsNaN(v) {
		return 0
	}

	x := v * q.scale
	if q.shaping {
		x -= q.lastErr
	}

	r := math.Round(x + q.noise())
	if r > q.hi {
		r = q.hi
		q.clipped++
	} else if r < q.lo {
		r = q.lo
		q.clipped++
	}

	if q.shaping {
		q.lastErr = r - x
	}
	return int(r)
}

// QuantizeTo converts src into dst, which must be at least as long.
func (q *Quantizer) QuantizeTo(dst []int, src []float64) {
	for i, v := range src {
		dst[i] = q.Quantize(v)
	}
}

// Reset clears the shaping error and the clip counter.
func (q *Quantizer) Reset() {
	q.lastErr = 0
	q.clipped = 0
}

func (q *Quantizer) noise() float64 {
	switch q.ditherType {
	case Rectangular:
		return q.rng.Float64() - 0.5
	case Triangular:
		return q.rng.Float64() - q.rng.Float64()
	default:
		return 0
	}
}
