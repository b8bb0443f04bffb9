package generic

import (
	"github.com/cwbudde/algo-graindelay/dsp/mix/internal/arch/registry"
	"github.com/cwbudde/algo-vecmath/cpu"
)

func init() {
	registry.Global.Register(registry.OpEntry{
		Name:      "generic",
		SIMDLevel: cpu.SIMDNone,
		Priority:  0,
		AddScaled: addScaled,
		GainRamp:  gainRamp,
	})
}

func addScaled(dst, src []float64, gain float64) {
	src = src[:len(dst)]

	i := 0
	n := len(dst)
	for ; i+3 < n; i += 4 {
		dst[i] += gain * src[i]
		dst[i+1] += gain * src[i+1]
		dst[i+2] += gain * src[i+2]
		dst[i+3] += gain * src[i+3]
	}
	for ; i < n; i++ {
		dst[i] += gain * src[i]
	}
}

func gainRamp(buf []float64, start, step float64) {
	if step == 0 {
		if start == 1 {
			return
		}
		for i := range buf {
			buf[i] *= start
		}
		return
	}
	for i := range buf {
		buf[i] *= start + float64(i)*step
	}
}
