package main

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-graindelay/dsp/core"
	"github.com/cwbudde/algo-graindelay/dsp/effects"
	"github.com/cwbudde/algo-graindelay/dsp/effects/granular"
	"github.com/cwbudde/algo-graindelay/dsp/effects/pitch"
)

const (
	shifterSpectral  = "spectral"
	shifterVarispeed = "varispeed"
)

type renderOptions struct {
	Params    effects.GrainDelayParams
	BlockSize int
	Seed      int64
	Shifter   string
	Tail      bool
}

type renderStats struct {
	Blocks  int
	Spawned int64
	Dropped int64
}

func newShifter(name string) (granular.PitchShifter, error) {
	switch name {
	case shifterSpectral, "":
		return pitch.NewSpectral(), nil
	case shifterVarispeed:
		return pitch.NewVarispeed(), nil
	default:
		return nil, fmt.Errorf("unknown pitch shifter %q", name)
	}
}

// render processes clip block by block. With Tail set the output is extended
// by the processor's tail so echoes and grains can ring out.
func render(clip *audioClip, opts renderOptions) (*audioClip, renderStats, error) {
	var stats renderStats

	if opts.BlockSize <= 0 {
		return nil, stats, fmt.Errorf("block size must be > 0: %d", opts.BlockSize)
	}
	shifter, err := newShifter(opts.Shifter)
	if err != nil {
		return nil, stats, err
	}

	gd, err := effects.NewGrainDelay(
		core.WithSampleRate(float64(clip.SampleRate)),
		core.WithBlockSize(opts.BlockSize),
		core.WithChannels(len(clip.Channels)),
		core.WithMaxDelayTime(math.Max(opts.Params.DelayTime, 1)),
	)
	if err != nil {
		return nil, stats, err
	}
	if err := gd.SetGrainOptions(granular.WithSeed(opts.Seed), granular.WithPitchShifter(shifter)); err != nil {
		return nil, stats, err
	}
	if err := gd.SetParams(opts.Params); err != nil {
		return nil, stats, err
	}

	frames := clip.Frames()
	total := frames
	if opts.Tail {
		total += int(math.Ceil(gd.TailSeconds() * float64(clip.SampleRate)))
	}

	out := &audioClip{
		SampleRate: clip.SampleRate,
		BitDepth:   clip.BitDepth,
		Channels:   make([][]float64, len(clip.Channels)),
	}
	for ch := range out.Channels {
		out.Channels[ch] = make([]float64, total)
		copy(out.Channels[ch], clip.Channels[ch])
	}

	block := make([][]float64, len(out.Channels))
	for start := 0; start < total; start += opts.BlockSize {
		end := min(start+opts.BlockSize, total)
		for ch := range block {
			block[ch] = out.Channels[ch][start:end]
		}
		if err := gd.Process(block); err != nil {
			return nil, stats, fmt.Errorf("block %d: %w", stats.Blocks, err)
		}
		stats.Blocks++
	}

	stats.Spawned = gd.Scheduler().Spawned()
	stats.Dropped = gd.Scheduler().Dropped()

	return out, stats, nil
}
