package effects

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-graindelay/dsp/core"
	"github.com/cwbudde/algo-graindelay/dsp/effects/granular"
	"github.com/cwbudde/algo-graindelay/dsp/effects/pitch"
	"github.com/cwbudde/algo-graindelay/internal/testutil"
)

const grainDelayBlock = 512

func newTestGrainDelay(t *testing.T, channels int, p GrainDelayParams, grainOpts ...granular.SchedulerOption) *GrainDelay {
	t.Helper()

	g, err := NewGrainDelay(core.WithChannels(channels), core.WithBlockSize(grainDelayBlock))
	if err != nil {
		t.Fatalf("NewGrainDelay() error = %v", err)
	}
	if len(grainOpts) > 0 {
		if err := g.SetGrainOptions(grainOpts...); err != nil {
			t.Fatalf("SetGrainOptions() error = %v", err)
		}
	}
	if err := g.SetParams(p); err != nil {
		t.Fatalf("SetParams() error = %v", err)
	}
	return g
}

// renderGrainDelay processes signal (one slice per channel) block by block
// and returns the output.
func renderGrainDelay(t *testing.T, g *GrainDelay, signal [][]float64) [][]float64 {
	t.Helper()

	out := make([][]float64, len(signal))
	for ch := range out {
		out[ch] = append([]float64(nil), signal[ch]...)
	}
	for start := 0; start < len(out[0]); start += grainDelayBlock {
		end := min(start+grainDelayBlock, len(out[0]))
		block := make([][]float64, len(out))
		for ch := range block {
			block[ch] = out[ch][start:end]
		}
		if err := g.Process(block); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
	}
	return out
}

func TestNewGrainDelayDefaults(t *testing.T) {
	g, err := NewGrainDelay()
	if err != nil {
		t.Fatalf("NewGrainDelay() error = %v", err)
	}
	if g.SampleRate() != 48000 || g.Channels() != 2 || g.BlockSize() != 512 {
		t.Fatalf("config = %f Hz, %d ch, %d block", g.SampleRate(), g.Channels(), g.BlockSize())
	}
	if g.Params() != DefaultGrainDelayParams() {
		t.Fatalf("Params() = %+v, want defaults", g.Params())
	}
	if g.DelayNumSamples() != 9600 {
		t.Fatalf("DelayNumSamples() = %d, want 9600", g.DelayNumSamples())
	}
	if g.Scheduler().GrainLength() != 1104 {
		t.Fatalf("grain length = %d, want 1104", g.Scheduler().GrainLength())
	}
	if g.MaxDelayTime() != 4 {
		t.Fatalf("MaxDelayTime() = %f, want 4", g.MaxDelayTime())
	}
}

func TestNewGrainDelayRejectsChannelCounts(t *testing.T) {
	for _, channels := range []int{3, 8} {
		_, err := NewGrainDelay(core.WithChannels(channels))
		if !errors.Is(err, ErrUnsupportedChannels) {
			t.Fatalf("channels=%d: error = %v, want ErrUnsupportedChannels", channels, err)
		}
	}
	if _, err := NewGrainDelay(core.WithChannels(1)); err != nil {
		t.Fatalf("mono: %v", err)
	}
}

func TestGrainDelayParamsValidate(t *testing.T) {
	mutate := func(f func(*GrainDelayParams)) GrainDelayParams {
		p := DefaultGrainDelayParams()
		f(&p)
		return p
	}

	tests := []struct {
		name    string
		params  GrainDelayParams
		wantErr bool
	}{
		{name: "defaults", params: DefaultGrainDelayParams()},
		{name: "zero grain rate", params: mutate(func(p *GrainDelayParams) { p.GrainRate = 0 }), wantErr: true},
		{name: "max grain rate", params: mutate(func(p *GrainDelayParams) { p.GrainRate = 200 })},
		{name: "grain rate too high", params: mutate(func(p *GrainDelayParams) { p.GrainRate = 201 }), wantErr: true},
		{name: "negative attack", params: mutate(func(p *GrainDelayParams) { p.GrainAttack = -1 }), wantErr: true},
		{name: "sustain above 1", params: mutate(func(p *GrainDelayParams) { p.GrainSustain = 1.1 }), wantErr: true},
		{name: "release NaN", params: mutate(func(p *GrainDelayParams) { p.GrainRelease = math.NaN() }), wantErr: true},
		{name: "delay too short", params: mutate(func(p *GrainDelayParams) { p.DelayTime = 0.001 }), wantErr: true},
		{name: "delay too long", params: mutate(func(p *GrainDelayParams) { p.DelayTime = 5 }), wantErr: true},
		{name: "feedback 1", params: mutate(func(p *GrainDelayParams) { p.Feedback = 1 }), wantErr: true},
		{name: "feedback max", params: mutate(func(p *GrainDelayParams) { p.Feedback = 0.99 })},
		{name: "wet Inf", params: mutate(func(p *GrainDelayParams) { p.WetMix = math.Inf(1) }), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParam) {
				t.Fatalf("error %v does not wrap ErrInvalidParam", err)
			}
		})
	}
}

func TestGrainDelayProcessValidatesLayout(t *testing.T) {
	g := newTestGrainDelay(t, 2, DefaultGrainDelayParams())

	if err := g.Process([][]float64{make([]float64, 64)}); !errors.Is(err, ErrChannelMismatch) {
		t.Fatalf("mono block: error = %v, want ErrChannelMismatch", err)
	}
	if err := g.Process([][]float64{make([]float64, 64), make([]float64, 32)}); !errors.Is(err, ErrChannelMismatch) {
		t.Fatalf("ragged block: error = %v, want ErrChannelMismatch", err)
	}
	if err := g.Process([][]float64{make([]float64, 1024), make([]float64, 1024)}); !errors.Is(err, ErrBlockSize) {
		t.Fatalf("long block: error = %v, want ErrBlockSize", err)
	}
	if err := g.Process([][]float64{{}, {}}); err != nil {
		t.Fatalf("empty block: %v", err)
	}
}

func TestGrainDelayFeedbackZeroWritesDry(t *testing.T) {
	p := DefaultGrainDelayParams()
	p.Feedback = 0
	g := newTestGrainDelay(t, 2, p)

	for i := range 30 {
		left := testutil.DeterministicNoise(int64(i), 0.5, grainDelayBlock)
		right := testutil.DeterministicNoise(int64(i+100), 0.5, grainDelayBlock)
		block := [][]float64{append([]float64(nil), left...), append([]float64(nil), right...)}
		if err := g.Process(block); err != nil {
			t.Fatal(err)
		}
		testutil.RequireSliceNearlyEqual(t, g.lines[0].Window(0, grainDelayBlock), left, 0)
		testutil.RequireSliceNearlyEqual(t, g.lines[1].Window(0, grainDelayBlock), right, 0)
	}
}

func TestGrainDelayDryRampIsLinear(t *testing.T) {
	p := DefaultGrainDelayParams()
	p.WetMix = 0
	g := newTestGrainDelay(t, 1, p)

	block := [][]float64{testutil.DC(1, grainDelayBlock)}
	if err := g.Process(block); err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, block[0], testutil.DC(0.8, grainDelayBlock), 1e-15)

	p.DryMix = 0.6
	if err := g.SetParams(p); err != nil {
		t.Fatal(err)
	}
	block = [][]float64{testutil.DC(1, grainDelayBlock)}
	if err := g.Process(block); err != nil {
		t.Fatal(err)
	}

	step := -0.2 / grainDelayBlock
	for i, v := range block[0] {
		want := 0.8 + float64(i)*step
		if math.Abs(v-want) > 1e-12 {
			t.Fatalf("gain[%d] = %v, want %v", i, v, want)
		}
	}
	if block[0][1] == block[0][0] || block[0][grainDelayBlock-1] <= 0.6 {
		t.Fatal("dry gain changed as a step")
	}

	block = [][]float64{testutil.DC(1, grainDelayBlock)}
	if err := g.Process(block); err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, block[0], testutil.DC(0.6, grainDelayBlock), 1e-15)
}

func TestGrainDelayTapEchoes(t *testing.T) {
	tests := []struct {
		name     string
		delay    float64
		feedback float64
	}{
		{name: "long delay", delay: 0.02, feedback: 0.5},
		{name: "delay shorter than block", delay: 0.01, feedback: 0.5},
		{name: "no feedback", delay: 0.03, feedback: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultGrainDelayParams()
			p.DelayTime = tt.delay
			p.Feedback = tt.feedback
			p.DryMix = 0
			p.WetMix = 1
			g := newTestGrainDelay(t, 1, p, granular.WithGrainGain(0))

			d := core.SecondsToSamples(tt.delay, g.SampleRate())
			if got := g.PendingDelayNumSamples(); got != d {
				t.Fatalf("PendingDelayNumSamples() = %d, want %d", got, d)
			}
			out := renderGrainDelay(t, g, [][]float64{testutil.Impulse(6*grainDelayBlock, 0)})[0]
			if got := g.DelayNumSamples(); got != d {
				t.Fatalf("DelayNumSamples() = %d after processing, want %d", got, d)
			}

			want := make([]float64, len(out))
			gain := 1.0
			for pos := d; pos < len(want); pos += d {
				want[pos] = gain
				gain *= tt.feedback
			}
			testutil.RequireSliceNearlyEqual(t, out, want, 1e-15)
		})
	}
}

func TestGrainDelayGrainsJoinTheWetSignal(t *testing.T) {
	p := DefaultGrainDelayParams()
	p.DryMix = 0
	p.Feedback = 0

	signal := [][]float64{testutil.DeterministicSine(330, 48000, 0.5, 48000)}
	tapOnly := renderGrainDelay(t, newTestGrainDelay(t, 1, p, granular.WithGrainGain(0)), signal)[0]

	g := newTestGrainDelay(t, 1, p, granular.WithSeed(3))
	withGrains := renderGrainDelay(t, g, signal)[0]

	if g.Scheduler().Spawned() == 0 {
		t.Fatal("no grains spawned")
	}
	diff, err := testutil.MaxAbsDiff(tapOnly, withGrains)
	if err != nil {
		t.Fatal(err)
	}
	if diff == 0 {
		t.Fatal("grains did not reach the output")
	}
	testutil.RequireFinite(t, withGrains)
}

func TestGrainDelaySilentMix(t *testing.T) {
	p := DefaultGrainDelayParams()
	p.DryMix = 0
	p.WetMix = 0
	g := newTestGrainDelay(t, 2, p)

	signal := testutil.Planar(2, testutil.DeterministicNoise(2, 0.5, 20*grainDelayBlock))
	out := renderGrainDelay(t, g, signal)
	for ch := range out {
		testutil.RequireSilent(t, out[ch])
	}
}

func TestGrainDelayResetSilencesTail(t *testing.T) {
	g := newTestGrainDelay(t, 2, DefaultGrainDelayParams())
	renderGrainDelay(t, g, testutil.Planar(2, testutil.DeterministicNoise(5, 0.5, 40*grainDelayBlock)))

	g.Reset()
	if g.Scheduler().LiveGrains() != 0 {
		t.Fatalf("LiveGrains = %d after Reset", g.Scheduler().LiveGrains())
	}
	out := renderGrainDelay(t, g, testutil.Planar(2, make([]float64, 40*grainDelayBlock)))
	for ch := range out {
		testutil.RequireSilent(t, out[ch])
	}
}

func TestGrainDelaySetMaxDelayTimeGrowsHistory(t *testing.T) {
	g, err := NewGrainDelay(core.WithChannels(1), core.WithMaxDelayTime(1))
	if err != nil {
		t.Fatal(err)
	}
	if g.lines[0].Len() != 96000 {
		t.Fatalf("line length = %d, want 96000", g.lines[0].Len())
	}

	p := DefaultGrainDelayParams()
	p.DelayTime = 3
	if err := g.SetParams(p); err != nil {
		t.Fatal(err)
	}
	if g.MaxDelayTime() != 3 || g.lines[0].Len() != 288000 {
		t.Fatalf("after SetParams: range %f s, line %d", g.MaxDelayTime(), g.lines[0].Len())
	}

	if err := g.SetMaxDelayTime(2); err != nil {
		t.Fatal(err)
	}
	if g.MaxDelayTime() != 3 {
		t.Fatal("delay range shrank")
	}
	if err := g.SetMaxDelayTime(0); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("SetMaxDelayTime(0) error = %v, want ErrInvalidParam", err)
	}
}

func TestGrainDelayDelayLatchesAtNextBlock(t *testing.T) {
	g := newTestGrainDelay(t, 1, DefaultGrainDelayParams())
	if err := g.Process([][]float64{make([]float64, grainDelayBlock)}); err != nil {
		t.Fatal(err)
	}

	p := DefaultGrainDelayParams()
	p.DelayTime = 0.05
	if err := g.SetParams(p); err != nil {
		t.Fatal(err)
	}
	if g.DelayNumSamples() != 9600 || g.PendingDelayNumSamples() != 2400 {
		t.Fatalf("before Process: active %d, pending %d, want 9600 and 2400",
			g.DelayNumSamples(), g.PendingDelayNumSamples())
	}
	if err := g.Process([][]float64{make([]float64, grainDelayBlock)}); err != nil {
		t.Fatal(err)
	}
	if g.DelayNumSamples() != 2400 {
		t.Fatalf("after Process: active %d, want 2400", g.DelayNumSamples())
	}
}

func TestGrainDelaySmallRangeStillServesDefaultDelay(t *testing.T) {
	g, err := NewGrainDelay(core.WithChannels(1), core.WithBlockSize(grainDelayBlock), core.WithMaxDelayTime(0.05))
	if err != nil {
		t.Fatal(err)
	}
	if err := g.SetGrainOptions(granular.WithGrainGain(0)); err != nil {
		t.Fatal(err)
	}
	if g.MaxDelayTime() < 0.2 || g.lines[0].Len() < 9600 {
		t.Fatalf("range %f s, line %d: too short for the 0.2 s default", g.MaxDelayTime(), g.lines[0].Len())
	}

	out := renderGrainDelay(t, g, [][]float64{testutil.Impulse(25*grainDelayBlock, 0)})[0]

	// Dry impulse at 0, first echo 0.2 s later at WetMix.
	if onset := testutil.Onset(out[1:], 0); onset+1 != 9600 {
		t.Fatalf("first echo at %d, want 9600", onset+1)
	}
	if math.Abs(out[9600]-0.6) > 1e-12 {
		t.Fatalf("echo = %v, want 0.6", out[9600])
	}
}

func TestGrainDelayTailSeconds(t *testing.T) {
	p := DefaultGrainDelayParams()
	p.Feedback = 0
	g := newTestGrainDelay(t, 1, p)

	want := 0.2 + 0.05 + 1104.0/48000
	if got := g.TailSeconds(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("TailSeconds() = %f, want %f", got, want)
	}

	p.Feedback = 0.5
	if err := g.SetParams(p); err != nil {
		t.Fatal(err)
	}
	// 0.5 per repeat needs 10 repeats to fall 60 dB.
	want += 10 * 0.2
	if got := g.TailSeconds(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("TailSeconds() = %f, want %f", got, want)
	}
}

func TestGrainDelayPrepare(t *testing.T) {
	g := newTestGrainDelay(t, 2, DefaultGrainDelayParams())

	if err := g.Prepare(0, 256); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("Prepare(0) error = %v, want ErrInvalidParam", err)
	}
	if err := g.Prepare(44100, 0); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("Prepare(block 0) error = %v, want ErrInvalidParam", err)
	}
	if err := g.Prepare(44100, 256); err != nil {
		t.Fatal(err)
	}
	if g.SampleRate() != 44100 || g.BlockSize() != 256 {
		t.Fatalf("after Prepare: %f Hz, block %d", g.SampleRate(), g.BlockSize())
	}
	if g.DelayNumSamples() != 8820 {
		t.Fatalf("DelayNumSamples() = %d, want 8820", g.DelayNumSamples())
	}
	if err := g.Process([][]float64{make([]float64, 512), make([]float64, 512)}); !errors.Is(err, ErrBlockSize) {
		t.Fatalf("Process after shrinking block: error = %v, want ErrBlockSize", err)
	}
}

func TestGrainDelayProcessDoesNotAllocate(t *testing.T) {
	g := newTestGrainDelay(t, 2, DefaultGrainDelayParams(), granular.WithPitchShifter(pitch.NewVarispeed()))
	block := testutil.Planar(2, testutil.DeterministicNoise(8, 0.25, grainDelayBlock))
	for range 40 {
		if err := g.Process(block); err != nil {
			t.Fatal(err)
		}
	}

	allocs := testing.AllocsPerRun(50, func() {
		_ = g.Process(block)
	})
	if allocs != 0 {
		t.Fatalf("Process allocated %.1f times per block", allocs)
	}
}

func BenchmarkGrainDelayProcess512Stereo(b *testing.B) {
	g, err := NewGrainDelay()
	if err != nil {
		b.Fatal(err)
	}
	block := testutil.Planar(2, testutil.DeterministicNoise(1, 0.25, 512))

	b.SetBytes(int64(2 * 512 * 8))
	b.ResetTimer()

	for range b.N {
		_ = g.Process(block)
	}
}
