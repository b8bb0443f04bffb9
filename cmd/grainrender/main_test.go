package main

import (
	"errors"
	"flag"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-graindelay/dsp/dither"
	"github.com/cwbudde/algo-graindelay/dsp/effects"
	"github.com/cwbudde/algo-graindelay/internal/testutil"
)

func TestLoadPreset(t *testing.T) {
	def, err := loadPreset("")
	if err != nil {
		t.Fatal(err)
	}
	if def != effects.DefaultGrainDelayParams() {
		t.Fatalf("empty path = %+v, want defaults", def)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "preset.json")
	if err := os.WriteFile(path, []byte(`{"grainRate": 25, "feedback": 0.5}`), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := loadPreset(path)
	if err != nil {
		t.Fatal(err)
	}
	want := effects.DefaultGrainDelayParams()
	want.GrainRate = 25
	want.Feedback = 0.5
	if p != want {
		t.Fatalf("preset = %+v, want %+v", p, want)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"grainSpeed": 3}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadPreset(bad); err == nil {
		t.Fatal("expected error for unknown field")
	}
	if _, err := loadPreset(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file error = %v, want ErrNotExist", err)
	}
}

func TestOverridesOnlySetFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var ov overrides
	ov.register(fs)
	if err := fs.Parse([]string{"-rate", "40", "-delay-var", "0"}); err != nil {
		t.Fatal(err)
	}

	base := effects.DefaultGrainDelayParams()
	base.Feedback = 0.9
	got := ov.apply(fs, base)

	want := base
	want.GrainRate = 40
	want.DelayTimeVar = 0
	if got != want {
		t.Fatalf("apply = %+v, want %+v", got, want)
	}
}

func TestInterleaveRoundTrip(t *testing.T) {
	left := []float64{0, 0.5, -0.5, 0.25}
	right := []float64{1, -1, 0.125, 0}

	quantizers := make([]*dither.Quantizer, 2)
	for ch := range quantizers {
		q, err := dither.NewQuantizer(16)
		if err != nil {
			t.Fatal(err)
		}
		quantizers[ch] = q
	}

	data := interleave([][]float64{left, right}, quantizers)
	if len(data) != 8 {
		t.Fatalf("len = %d, want 8", len(data))
	}
	if data[0] != 0 || data[1] != 32767 || data[3] != -32768 {
		t.Fatalf("interleaved = %v", data)
	}
	if quantizers[1].Clipped() != 1 {
		t.Fatalf("right channel clipped %d samples, want 1", quantizers[1].Clipped())
	}

	scale := fullScale(16)
	planar := deinterleave(data, 2, scale)
	testutil.RequireSliceNearlyEqual(t, planar[0], left, 1e-12)
	if math.Abs(planar[1][0]-1) > 1/scale {
		t.Fatalf("full scale came back as %v", planar[1][0])
	}
}

func TestOutputBitDepth(t *testing.T) {
	for in, want := range map[int]int{8: 16, 16: 16, 24: 24, 32: 32, 0: 16} {
		if got := outputBitDepth(in); got != want {
			t.Fatalf("outputBitDepth(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestRender(t *testing.T) {
	const sr = 48000
	input := testutil.DeterministicSine(400, sr, 0.5, sr/2)
	clip := &audioClip{SampleRate: sr, BitDepth: 16, Channels: [][]float64{input}}

	params := effects.DefaultGrainDelayParams()
	out, stats, err := render(clip, renderOptions{
		Params:    params,
		BlockSize: 500,
		Seed:      3,
		Shifter:   shifterVarispeed,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Frames() != len(input) {
		t.Fatalf("frames = %d, want %d", out.Frames(), len(input))
	}
	if stats.Blocks != 48 {
		t.Fatalf("blocks = %d, want 48", stats.Blocks)
	}
	if stats.Spawned == 0 {
		t.Fatal("no grains spawned")
	}
	testutil.RequireFinite(t, out.Channels[0])

	// Nothing but the scaled dry signal before the first echo.
	residual := make([]float64, len(input))
	for i := range residual {
		residual[i] = out.Channels[0][i] - input[i]*params.DryMix
	}
	if onset := testutil.Onset(residual, 1e-12); onset < 9600 {
		t.Fatalf("wet signal starts at %d, want >= 9600", onset)
	}

	tailed, _, err := render(clip, renderOptions{Params: params, BlockSize: 512, Seed: 3, Tail: true})
	if err != nil {
		t.Fatal(err)
	}
	if tailed.Frames() <= len(input) {
		t.Fatalf("tail not appended: %d frames", tailed.Frames())
	}
}

func TestRenderRejects(t *testing.T) {
	clip := &audioClip{SampleRate: 48000, BitDepth: 16, Channels: [][]float64{make([]float64, 10)}}
	params := effects.DefaultGrainDelayParams()

	if _, _, err := render(clip, renderOptions{Params: params, BlockSize: 0}); err == nil {
		t.Fatal("expected error for block size 0")
	}
	if _, _, err := render(clip, renderOptions{Params: params, BlockSize: 64, Shifter: "granular"}); err == nil {
		t.Fatal("expected error for unknown shifter")
	}

	wide := &audioClip{SampleRate: 48000, BitDepth: 16, Channels: make([][]float64, 3)}
	for ch := range wide.Channels {
		wide.Channels[ch] = make([]float64, 10)
	}
	if _, _, err := render(wide, renderOptions{Params: params, BlockSize: 64}); !errors.Is(err, effects.ErrUnsupportedChannels) {
		t.Fatalf("3 channels: err = %v, want ErrUnsupportedChannels", err)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	clip := &audioClip{
		SampleRate: 44100,
		BitDepth:   24,
		Channels: [][]float64{
			testutil.DeterministicSine(220, 44100, 0.5, 256),
			testutil.DeterministicSine(330, 44100, 0.25, 256),
		},
	}
	clipped, err := writeWAV(path, clip, dither.WithType(dither.None))
	if err != nil {
		t.Fatal(err)
	}
	if clipped != 0 {
		t.Fatalf("clipped %d samples", clipped)
	}

	got, err := readWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.SampleRate != 44100 || got.BitDepth != 24 || len(got.Channels) != 2 || got.Frames() != 256 {
		t.Fatalf("read back %d Hz, %d bit, %d ch, %d frames", got.SampleRate, got.BitDepth, len(got.Channels), got.Frames())
	}
	for ch := range clip.Channels {
		testutil.RequireSliceNearlyEqual(t, got.Channels[ch], clip.Channels[ch], 1/fullScale(24))
	}
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.wav")
	if err := os.WriteFile(path, []byte("definitely not RIFF"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readWAV(path); err == nil {
		t.Fatal("expected error for invalid file")
	}
}
