package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-graindelay/dsp/buffer"
	"github.com/cwbudde/algo-graindelay/dsp/core"
	"github.com/cwbudde/algo-graindelay/dsp/delay"
	"github.com/cwbudde/algo-graindelay/dsp/effects/granular"
	"github.com/cwbudde/algo-graindelay/dsp/envelope"
	"github.com/cwbudde/algo-graindelay/dsp/mix"
)

const (
	minGrainRateHz        = 0.0
	maxGrainRateHz        = 200.0
	maxGrainSegmentMs     = 1000.0
	maxGrainReleaseMs     = 2000.0
	minGrainDelaySeconds  = 0.01
	maxGrainDelaySeconds  = 4.0
	maxGrainDelayVarSec   = 1.0
	maxGrainDelayFeedback = 0.99

	// tailFloorDB is where feedback echoes count as gone.
	tailFloorDB = -60.0
)

// GrainDelayParams are the host-facing settings of a GrainDelay.
// Envelope times are in milliseconds, delay times in seconds.
type GrainDelayParams struct {
	GrainRate    float64 `json:"grainRate"`
	GrainAttack  float64 `json:"grainAttack"`
	GrainDecay   float64 `json:"grainDecay"`
	GrainSustain float64 `json:"grainSustain"`
	GrainRelease float64 `json:"grainRelease"`
	DelayTime    float64 `json:"delayTime"`
	DelayTimeVar float64 `json:"delayTimeVar"`
	Feedback     float64 `json:"feedback"`
	DryMix       float64 `json:"dryMix"`
	WetMix       float64 `json:"wetMix"`
}

// DefaultGrainDelayParams returns 10 grains/s with a 3/10/20 ms envelope at
// 0.7 sustain, a 200 ms delay with 50 ms variance, 0.3 feedback, 0.8 dry
// and 0.6 wet.
func DefaultGrainDelayParams() GrainDelayParams {
	return GrainDelayParams{
		GrainRate:    10,
		GrainAttack:  3,
		GrainDecay:   10,
		GrainSustain: 0.7,
		GrainRelease: 20,
		DelayTime:    0.2,
		DelayTimeVar: 0.05,
		Feedback:     0.3,
		DryMix:       0.8,
		WetMix:       0.6,
	}
}

// Validate checks every field against its range.
func (p GrainDelayParams) Validate() error {
	if p.GrainRate <= minGrainRateHz || p.GrainRate > maxGrainRateHz ||
		math.IsNaN(p.GrainRate) || math.IsInf(p.GrainRate, 0) {
		return fmt.Errorf("%w: grain rate must be in (%g, %g] Hz: %f",
			ErrInvalidParam, minGrainRateHz, maxGrainRateHz, p.GrainRate)
	}

	checks := []struct {
		name     string
		value    float64
		min, max float64
	}{
		{"grain attack", p.GrainAttack, 0, maxGrainSegmentMs},
		{"grain decay", p.GrainDecay, 0, maxGrainSegmentMs},
		{"grain sustain", p.GrainSustain, 0, 1},
		{"grain release", p.GrainRelease, 0, maxGrainReleaseMs},
		{"delay time", p.DelayTime, minGrainDelaySeconds, maxGrainDelaySeconds},
		{"delay time variance", p.DelayTimeVar, 0, maxGrainDelayVarSec},
		{"feedback", p.Feedback, 0, maxGrainDelayFeedback},
		{"dry mix", p.DryMix, 0, 1},
		{"wet mix", p.WetMix, 0, 1},
	}
	for _, c := range checks {
		if !core.InRange(c.value, c.min, c.max) {
			return fmt.Errorf("%w: %s must be in [%g, %g]: %f", ErrInvalidParam, c.name, c.min, c.max, c.value)
		}
	}

	return nil
}

func (p GrainDelayParams) scheduler() granular.SchedulerParams {
	return granular.SchedulerParams{
		GrainRate: p.GrainRate,
		Envelope: envelope.Params{
			Attack:  p.GrainAttack / 1000,
			Decay:   p.GrainDecay / 1000,
			Sustain: p.GrainSustain,
			Release: p.GrainRelease / 1000,
		},
		DelayTimeVar: p.DelayTimeVar,
	}
}

// GrainDelay is a feedback delay whose wet signal is enriched with grains
// read back from the delay history.
//
// Each block the wet buffer receives the delay tap plus the grains, the
// delay lines receive dry + feedback*tap, and the output is
// dry*DryMix + wet*WetMix. Mix changes are ramped linearly across one
// block. Delays shorter than the block are completed sample by sample from
// the block's own feedback signal.
//
// Parameters set with SetParams take effect at the start of the next block.
// Process does not allocate. GrainDelay is not thread-safe.
type GrainDelay struct {
	cfg core.ProcessorConfig

	params  GrainDelayParams
	pending GrainDelayParams
	dirty   bool

	lines      []*delay.Line
	scheduler  *granular.Scheduler
	grainOpts  []granular.SchedulerOption
	wet        *buffer.Buffer
	feed       *buffer.Buffer
	delayTaps  int
	dryGain    float64
	wetGain    float64
	rampsReady bool
}

// NewGrainDelay creates a stereo 48 kHz processor with a 4 s delay range
// unless opts say otherwise, using DefaultGrainDelayParams.
func NewGrainDelay(opts ...core.ProcessorOption) (*GrainDelay, error) {
	cfg := core.ApplyProcessorOptions(opts...)
	if cfg.Channels < 1 || cfg.Channels > 2 {
		return nil, fmt.Errorf("%w: grain delay supports 1 or 2 channels: %d", ErrUnsupportedChannels, cfg.Channels)
	}

	g := &GrainDelay{
		cfg:     cfg,
		params:  DefaultGrainDelayParams(),
		pending: DefaultGrainDelayParams(),
	}
	if err := g.Prepare(cfg.SampleRate, cfg.BlockSize); err != nil {
		return nil, err
	}

	return g, nil
}

// Prepare reallocates history, work buffers and grains for a new sample
// rate and maximum block size. All audio state is cleared.
func (g *GrainDelay) Prepare(sampleRate float64, blockSize int) error {
	if !core.IsFinitePositive(sampleRate) {
		return fmt.Errorf("%w: grain delay sample rate must be > 0: %f", ErrInvalidParam, sampleRate)
	}
	if blockSize <= 0 {
		return fmt.Errorf("%w: grain delay block size must be > 0: %d", ErrInvalidParam, blockSize)
	}

	scheduler, err := granular.NewScheduler(sampleRate, g.cfg.Channels, g.grainOpts...)
	if err != nil {
		return err
	}

	maxDelay := max(g.cfg.MaxDelaySeconds, g.pending.DelayTime)
	size := lineSize(sampleRate, maxDelay)
	lines := make([]*delay.Line, g.cfg.Channels)
	for ch := range lines {
		if lines[ch], err = delay.New(size); err != nil {
			return err
		}
	}

	g.cfg.SampleRate = sampleRate
	g.cfg.BlockSize = blockSize
	g.cfg.MaxDelaySeconds = maxDelay
	g.lines = lines
	g.scheduler = scheduler
	g.wet = buffer.New(g.cfg.Channels, blockSize)
	g.feed = buffer.New(g.cfg.Channels, blockSize)

	g.params = g.pending
	g.dirty = false
	if err := g.applyParams(); err != nil {
		return err
	}
	g.rampsReady = false

	return nil
}

// SetGrainOptions rebuilds the grain scheduler with opts, for example to
// seed it or swap the pitch shifter. Live grains are dropped.
func (g *GrainDelay) SetGrainOptions(opts ...granular.SchedulerOption) error {
	scheduler, err := granular.NewScheduler(g.cfg.SampleRate, g.cfg.Channels, opts...)
	if err != nil {
		return err
	}
	if err := scheduler.Configure(g.params.scheduler()); err != nil {
		return err
	}
	g.grainOpts = append(g.grainOpts[:0], opts...)
	g.scheduler = scheduler
	return nil
}

// SetParams validates p and latches it for the next block. A delay time
// beyond the current range grows the history first.
func (g *GrainDelay) SetParams(p GrainDelayParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.DelayTime > g.cfg.MaxDelaySeconds {
		if err := g.SetMaxDelayTime(p.DelayTime); err != nil {
			return err
		}
	}
	g.pending = p
	g.dirty = true
	return nil
}

// SetMaxDelayTime grows the history to serve delays of up to seconds. The
// range never shrinks; smaller values are accepted and ignored.
func (g *GrainDelay) SetMaxDelayTime(seconds float64) error {
	if !core.IsFinitePositive(seconds) {
		return fmt.Errorf("%w: grain delay max delay time must be > 0: %f", ErrInvalidParam, seconds)
	}
	if seconds <= g.cfg.MaxDelaySeconds {
		return nil
	}
	size := lineSize(g.cfg.SampleRate, seconds)
	for _, line := range g.lines {
		if err := line.Resize(size); err != nil {
			return err
		}
	}
	g.cfg.MaxDelaySeconds = seconds
	return nil
}

// Reset clears history, grains and ramp state. Parameters are kept.
func (g *GrainDelay) Reset() {
	for _, line := range g.lines {
		line.Reset()
	}
	g.scheduler.Reset()
	g.wet.Zero()
	g.feed.Zero()
	g.rampsReady = false
}

// Params returns the most recently set parameters. They take effect at the
// start of the next block.
func (g *GrainDelay) Params() GrainDelayParams { return g.pending }

// SampleRate returns the sample rate in Hz.
func (g *GrainDelay) SampleRate() float64 { return g.cfg.SampleRate }

// BlockSize returns the largest block Process accepts.
func (g *GrainDelay) BlockSize() int { return g.cfg.BlockSize }

// Channels returns the channel count.
func (g *GrainDelay) Channels() int { return g.cfg.Channels }

// MaxDelayTime returns the delay range in seconds.
func (g *GrainDelay) MaxDelayTime() float64 { return g.cfg.MaxDelaySeconds }

// DelayNumSamples returns the delay in samples used by the last block.
// A delay time set since then shows up in PendingDelayNumSamples.
func (g *GrainDelay) DelayNumSamples() int { return g.delayTaps }

// PendingDelayNumSamples returns the delay in samples the next block will
// use.
func (g *GrainDelay) PendingDelayNumSamples() int {
	return delayTaps(g.pending.DelayTime, g.cfg.SampleRate)
}

// Scheduler exposes the grain scheduler for inspection.
func (g *GrainDelay) Scheduler() *granular.Scheduler { return g.scheduler }

// TailSeconds returns how long output continues after the input stops:
// the time for feedback echoes to reach -60 dB plus one delay, the
// longest grain and the onset variance.
func (g *GrainDelay) TailSeconds() float64 {
	p := g.pending
	echoes := core.DecayTime(p.DelayTime, p.Feedback, tailFloorDB)
	grain := float64(granular.GrainLength(p.scheduler().Envelope, g.cfg.SampleRate)) / g.cfg.SampleRate
	return echoes + p.DelayTime + p.DelayTimeVar + max(grain, g.scheduler.MaxGrainSeconds())
}

// Process runs one block in place. buf holds one slice per channel, all of
// the same length and at most BlockSize long.
func (g *GrainDelay) Process(buf [][]float64) error {
	if len(buf) != g.cfg.Channels {
		return fmt.Errorf("%w: got %d channels, want %d", ErrChannelMismatch, len(buf), g.cfg.Channels)
	}
	n := len(buf[0])
	for ch := range buf {
		if len(buf[ch]) != n {
			return fmt.Errorf("%w: channel %d has %d samples, want %d", ErrChannelMismatch, ch, len(buf[ch]), n)
		}
	}
	if n > g.cfg.BlockSize {
		return fmt.Errorf("%w: %d > %d", ErrBlockSize, n, g.cfg.BlockSize)
	}
	if n == 0 {
		return nil
	}

	oldDry, oldWet := g.dryGain, g.wetGain
	if g.dirty {
		g.params = g.pending
		g.dirty = false
		if err := g.applyParams(); err != nil {
			return err
		}
	}
	if !g.rampsReady {
		oldDry, oldWet = g.dryGain, g.wetGain
		g.rampsReady = true
	}

	g.wet.Resize(n)
	g.feed.Resize(n)
	wet := g.wet.Channels()
	feed := g.feed.Channels()

	for ch, line := range g.lines {
		g.readTap(line, buf[ch], wet[ch], feed[ch])
	}

	// Grains read history up to the block start and add onto the tap.
	g.scheduler.Process(g.lines, wet, g.delayTaps)

	for ch, line := range g.lines {
		line.Push(feed[ch])
	}

	for ch := range buf {
		mix.ApplyGainRamp(buf[ch], oldDry, g.dryGain)
		mix.ApplyGainRamp(wet[ch], oldWet, g.wetGain)
		mix.AddScaled(buf[ch], wet[ch], 1)
	}

	return nil
}

// readTap fills tap with the delayed signal for this block and feed with
// dry + feedback*tap, the signal written back into the line.
func (g *GrainDelay) readTap(line *delay.Line, dry, tap, feed []float64) {
	n := len(dry)
	d := g.delayTaps
	fb := g.params.Feedback

	if d >= n {
		w := line.Window(d-n, n)
		if w == nil {
			core.Zero(tap)
		} else {
			copy(tap, w)
		}
		copy(feed, dry)
		mix.AddScaled(feed, tap, fb)
		for i := range feed {
			feed[i] = core.FlushDenormals(feed[i])
		}
		return
	}

	// The tap reaches into this block's own feedback signal.
	for i := range n {
		if i < d {
			tap[i] = line.Read(d - i)
		} else {
			tap[i] = feed[i-d]
		}
		feed[i] = core.FlushDenormals(dry[i] + fb*tap[i])
	}
}

func (g *GrainDelay) applyParams() error {
	if err := g.scheduler.Configure(g.params.scheduler()); err != nil {
		return err
	}
	g.delayTaps = delayTaps(g.params.DelayTime, g.cfg.SampleRate)
	g.dryGain = g.params.DryMix
	g.wetGain = g.params.WetMix
	return nil
}

func delayTaps(seconds, sampleRate float64) int {
	return max(1, core.SecondsToSamples(seconds, sampleRate))
}

// lineSize returns the history needed for delays of up to maxDelay seconds.
func lineSize(sampleRate, maxDelay float64) int {
	return max(1, int(math.Ceil(2*sampleRate*maxDelay)))
}
