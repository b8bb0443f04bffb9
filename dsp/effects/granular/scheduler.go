package granular

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-graindelay/dsp/delay"
	"github.com/cwbudde/algo-graindelay/dsp/effects/pitch"
	"github.com/cwbudde/algo-graindelay/dsp/envelope"
)

const (
	defaultMaxGrains        = 64
	defaultSeed             = 1
	defaultGrainRate        = 10.0
	defaultDelayTimeVar     = 0.05
	defaultReverseProb      = 0.5
	defaultPitchShiftProb   = 0.5
	defaultGrainGain        = 1.0
	maxSchedulerChannels    = 8
	maxSchedulerGrainRateHz = 1000.0
)

// SchedulerParams are the per-block grain settings.
type SchedulerParams struct {
	// GrainRate is the number of grain onsets per second.
	GrainRate float64
	// Envelope is the grain envelope in seconds; sustain is a level.
	Envelope envelope.Params
	// DelayTimeVar is the onset jitter span in seconds, centred on the
	// nominal onset.
	DelayTimeVar float64
}

// DefaultSchedulerParams returns 10 grains per second with a 3/10/20 ms
// envelope, 0.7 sustain and 50 ms of jitter.
func DefaultSchedulerParams() SchedulerParams {
	return SchedulerParams{
		GrainRate: defaultGrainRate,
		Envelope: envelope.Params{
			Attack:  0.003,
			Decay:   0.010,
			Sustain: 0.7,
			Release: 0.020,
		},
		DelayTimeVar: defaultDelayTimeVar,
	}
}

// Validate checks ranges.
func (p SchedulerParams) Validate() error {
	if p.GrainRate <= 0 || p.GrainRate > maxSchedulerGrainRateHz || math.IsNaN(p.GrainRate) {
		return fmt.Errorf("grain rate must be in (0, %g] Hz: %f", maxSchedulerGrainRateHz, p.GrainRate)
	}
	if p.DelayTimeVar < 0 || math.IsNaN(p.DelayTimeVar) || math.IsInf(p.DelayTimeVar, 0) {
		return fmt.Errorf("grain delay time variance must be >= 0 and finite: %f", p.DelayTimeVar)
	}
	return p.Envelope.Validate()
}

type schedulerConfig struct {
	rng            RandomSource
	seed           int64
	maxGrains      int
	env            EnvelopeGenerator
	shifter        PitchShifter
	shifterSet     bool
	reverseProb    float64
	pitchShiftProb float64
	grainGain      float64
}

// SchedulerOption configures a Scheduler at construction.
type SchedulerOption func(*schedulerConfig)

// WithRandomSource injects the generator for jitter and coin flips.
func WithRandomSource(rng RandomSource) SchedulerOption {
	return func(cfg *schedulerConfig) {
		if rng != nil {
			cfg.rng = rng
		}
	}
}

// WithSeed seeds the built-in generator. Ignored when WithRandomSource is
// also given.
func WithSeed(seed int64) SchedulerOption {
	return func(cfg *schedulerConfig) {
		cfg.seed = seed
	}
}

// WithMaxGrains sets the number of grain slots. Values <= 0 are ignored.
func WithMaxGrains(n int) SchedulerOption {
	return func(cfg *schedulerConfig) {
		if n > 0 {
			cfg.maxGrains = n
		}
	}
}

// WithEnvelope replaces the default linear ADSR.
func WithEnvelope(env EnvelopeGenerator) SchedulerOption {
	return func(cfg *schedulerConfig) {
		if env != nil {
			cfg.env = env
		}
	}
}

// WithPitchShifter replaces the default spectral shifter. nil disables
// pitch shifting; grains flagged for it play unshifted.
func WithPitchShifter(shifter PitchShifter) SchedulerOption {
	return func(cfg *schedulerConfig) {
		cfg.shifter = shifter
		cfg.shifterSet = true
	}
}

// WithReverseProbability sets the chance a grain is reversed, clamped to
// [0, 1].
func WithReverseProbability(p float64) SchedulerOption {
	return func(cfg *schedulerConfig) {
		cfg.reverseProb = clampProbability(p)
	}
}

// WithPitchShiftProbability sets the chance a grain is pitch-shifted,
// clamped to [0, 1].
func WithPitchShiftProbability(p float64) SchedulerOption {
	return func(cfg *schedulerConfig) {
		cfg.pitchShiftProb = clampProbability(p)
	}
}

// WithGrainGain sets the gain each grain is mixed with.
func WithGrainGain(gain float64) SchedulerOption {
	return func(cfg *schedulerConfig) {
		cfg.grainGain = clampedGain(gain)
	}
}

func clampProbability(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Min(math.Max(p, 0), 1)
}

// Scheduler owns the live grains of one processor.
//
// Every block it spawns grains on a jittered period, captures grains whose
// source window is fully written, plays captured grains into the wet
// buffer, and finally prunes finished grains and ages the rest.
//
// Scheduler is not thread-safe.
type Scheduler struct {
	sampleRate float64
	channels   int
	params     SchedulerParams

	grainPeriod        int
	currentGrainOffset int
	grainLength        int

	rng            RandomSource
	env            EnvelopeGenerator
	shifter        PitchShifter
	reverseProb    float64
	pitchShiftProb float64
	grainGain      float64

	slots      *arena
	slotFrames int
	shiftLen   int

	spawned int64
	dropped int64
}

// NewScheduler creates a scheduler for channels channels at sampleRate and
// configures it with DefaultSchedulerParams.
func NewScheduler(sampleRate float64, channels int, opts ...SchedulerOption) (*Scheduler, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("scheduler sample rate must be > 0: %f", sampleRate)
	}
	if channels < 1 || channels > maxSchedulerChannels {
		return nil, fmt.Errorf("scheduler channels must be in [1, %d]: %d", maxSchedulerChannels, channels)
	}

	cfg := schedulerConfig{
		seed:           defaultSeed,
		maxGrains:      defaultMaxGrains,
		reverseProb:    defaultReverseProb,
		pitchShiftProb: defaultPitchShiftProb,
		grainGain:      defaultGrainGain,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewSource(cfg.seed))
	}
	if cfg.env == nil {
		adsr, err := envelope.NewADSR(sampleRate)
		if err != nil {
			return nil, err
		}
		cfg.env = adsr
	}
	if !cfg.shifterSet {
		cfg.shifter = pitch.NewSpectral()
	}

	s := &Scheduler{
		sampleRate:     sampleRate,
		channels:       channels,
		rng:            cfg.rng,
		env:            cfg.env,
		shifter:        cfg.shifter,
		reverseProb:    cfg.reverseProb,
		pitchShiftProb: cfg.pitchShiftProb,
		grainGain:      cfg.grainGain,
		slots:          newArena(cfg.maxGrains, channels, 0),
	}

	if err := s.Configure(DefaultSchedulerParams()); err != nil {
		return nil, err
	}

	return s, nil
}

// Configure applies new grain settings. Slot storage and the pitch shifter
// grow when grains get longer; this is the only place that allocates.
// Live grains keep the settings they were spawned with.
func (s *Scheduler) Configure(p SchedulerParams) error {
	if err := p.Validate(); err != nil {
		return err
	}

	length := GrainLength(p.Envelope, s.sampleRate)
	if length > s.slotFrames {
		s.slots.grow(s.channels, length)
		s.slotFrames = length
	}
	if s.shifter != nil && length > s.shiftLen {
		if err := s.shifter.Prepare(s.sampleRate, length); err != nil {
			return fmt.Errorf("granular pitch shifter: %w", err)
		}
		s.shiftLen = length
	}

	s.params = p
	s.grainLength = length
	s.grainPeriod = max(1, int(s.sampleRate/p.GrainRate))

	return nil
}

// Params returns the current settings.
func (s *Scheduler) Params() SchedulerParams { return s.params }

// SampleRate returns the sample rate in Hz.
func (s *Scheduler) SampleRate() float64 { return s.sampleRate }

// Channels returns the channel count.
func (s *Scheduler) Channels() int { return s.channels }

// GrainPeriod returns the nominal samples between onsets.
func (s *Scheduler) GrainPeriod() int { return s.grainPeriod }

// GrainLength returns the length of newly spawned grains in samples.
func (s *Scheduler) GrainLength() int { return s.grainLength }

// NextOnset returns the next nominal onset relative to the next block.
func (s *Scheduler) NextOnset() int { return s.currentGrainOffset }

// MaxGrains returns the number of grain slots.
func (s *Scheduler) MaxGrains() int { return s.slots.size() }

// LiveGrains returns the number of grains not yet pruned.
func (s *Scheduler) LiveGrains() int { return s.slots.live() }

// Spawned returns the number of grains spawned since creation or Reset.
func (s *Scheduler) Spawned() int64 { return s.spawned }

// Dropped returns the number of spawns skipped because every slot was live.
func (s *Scheduler) Dropped() int64 { return s.dropped }

// Grains calls fn for every live grain in spawn order.
func (s *Scheduler) Grains(fn func(*Grain)) {
	for i := range s.slots.live() {
		fn(s.slots.at(i))
	}
}

// MaxGrainSeconds returns the longest grain length for the current
// settings in seconds.
func (s *Scheduler) MaxGrainSeconds() float64 {
	return float64(s.slotFrames) / s.sampleRate
}

// Reset drops all grains and restarts the onset schedule. The random
// source is not reseeded.
func (s *Scheduler) Reset() {
	s.slots.reset()
	s.currentGrainOffset = 0
	s.spawned = 0
	s.dropped = 0
}

// Process runs one block. lines hold history written up to the start of
// the block, one per channel; wet receives the grains additively and its
// first channel sets the block length. delayNumSamples is the distance
// between a grain's source and its playback for grains spawned now.
func (s *Scheduler) Process(lines []*delay.Line, wet [][]float64, delayNumSamples int) {
	if len(wet) == 0 {
		return
	}
	numSamples := len(wet[0])

	s.spawn(numSamples, delayNumSamples)
	s.capture(lines)
	s.play(wet, numSamples)
	s.age(numSamples)
}

func (s *Scheduler) spawn(numSamples, delayNumSamples int) {
	jitterSpan := s.params.DelayTimeVar * s.sampleRate

	for s.currentGrainOffset <= numSamples {
		jitter := int(math.Round((s.rng.Float64() - 0.5) * jitterSpan))
		reversed := s.rng.Float64() < s.reverseProb
		pitchShift := s.rng.Float64() < s.pitchShiftProb

		if g := s.slots.acquire(); g != nil {
			g.init(s.currentGrainOffset+jitter, delayNumSamples, s.params.Envelope, s.sampleRate,
				reversed, pitchShift)
			s.spawned++
		} else {
			s.dropped++
		}

		s.currentGrainOffset += s.grainPeriod + max(jitter, 0)
	}
}

func (s *Scheduler) capture(lines []*delay.Line) {
	for i := range s.slots.live() {
		g := s.slots.at(i)
		if g.state != StateScheduled || !g.inPast() {
			continue
		}
		offset := g.sourceOffset()
		if !g.fits(lines, offset) {
			// History never reaches back that far.
			g.finish()
			continue
		}
		if !g.Capture(lines, offset, s.env, s.shifter) {
			g.finish()
		}
	}
}

func (s *Scheduler) play(wet [][]float64, numSamples int) {
	for i := range s.slots.live() {
		g := s.slots.at(i)

		switch g.state {
		case StateScheduled, StateFinished:
		case StateCaptured:
			start := g.PlaybackStart()
			switch {
			case start < 0:
				g.finish()
			case start < numSamples:
				g.Process(wet, s.grainGain, start)
			}
		case StatePlaying:
			g.Process(wet, s.grainGain, 0)
		}
	}
}

func (s *Scheduler) age(numSamples int) {
	s.slots.prune()
	for i := range s.slots.live() {
		s.slots.at(i).age(numSamples)
	}
	s.currentGrainOffset -= numSamples
}
