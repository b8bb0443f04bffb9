package mix

import (
	"sync"

	archregistry "github.com/cwbudde/algo-graindelay/dsp/mix/internal/arch/registry"
	"github.com/cwbudde/algo-vecmath/cpu"

	// Registers the portable fallback kernels.
	_ "github.com/cwbudde/algo-graindelay/dsp/mix/internal/arch/generic"
)

var (
	kernels        *archregistry.OpEntry
	kernelInitOnce sync.Once
)

func initKernels() {
	entry := archregistry.Global.Lookup(cpu.DetectFeatures())
	if entry == nil {
		panic("mix: no kernel registered (missing generic fallback?)")
	}
	if entry.AddScaled == nil || entry.GainRamp == nil {
		panic("mix: selected kernel set is incomplete")
	}
	kernels = entry
}

// KernelName returns the name of the selected kernel set.
func KernelName() string {
	kernelInitOnce.Do(initKernels)
	return kernels.Name
}

// AddScaled accumulates dst[i] += gain * src[i] over min(len(dst), len(src))
// samples. Zero-alloc.
func AddScaled(dst, src []float64, gain float64) {
	kernelInitOnce.Do(initKernels)
	n := min(len(dst), len(src))
	if n == 0 || gain == 0 {
		return
	}
	kernels.AddScaled(dst[:n], src[:n], gain)
}

// ApplyGain multiplies buf by a constant gain.
func ApplyGain(buf []float64, gain float64) {
	ApplyGainRamp(buf, gain, gain)
}

// ApplyGainRamp multiplies buf by a gain that moves linearly from start
// towards end: sample i is scaled by start + i*(end-start)/len(buf).
// The end value itself is reached on the first sample of the next block,
// so consecutive ramps join without a step.
func ApplyGainRamp(buf []float64, start, end float64) {
	kernelInitOnce.Do(initKernels)
	if len(buf) == 0 {
		return
	}
	step := (end - start) / float64(len(buf))
	kernels.GainRamp(buf, start, step)
}
