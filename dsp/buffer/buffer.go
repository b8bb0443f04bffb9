package buffer

// Buffer is a planar multichannel sample block. All channels share one
// contiguous backing array sized for the largest block seen so far.
type Buffer struct {
	data     []float64
	channels [][]float64
	frames   int
}

// New returns a zero-filled Buffer with the given channel and frame counts.
// Negative counts are treated as zero.
func New(channels, frames int) *Buffer {
	if channels < 0 {
		channels = 0
	}
	if frames < 0 {
		frames = 0
	}
	b := &Buffer{channels: make([][]float64, channels)}
	b.Resize(frames)
	return b
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	return len(b.channels)
}

// Frames returns the current number of frames per channel.
func (b *Buffer) Frames() int {
	return b.frames
}

// Capacity returns the number of frames that fit without reallocating.
func (b *Buffer) Capacity() int {
	if len(b.channels) == 0 {
		return 0
	}
	return len(b.data) / len(b.channels)
}

// Channel returns the samples of channel ch.
func (b *Buffer) Channel(ch int) []float64 {
	return b.channels[ch]
}

// Channels returns per-channel views. The outer slice is owned by the
// Buffer and stays valid until the next Resize.
func (b *Buffer) Channels() [][]float64 {
	return b.channels
}

// Resize sets the frame count, reusing existing capacity when possible.
// Content is preserved only when no reallocation is needed; newly exposed
// frames are zeroed.
func (b *Buffer) Resize(frames int) {
	if frames < 0 {
		frames = 0
	}
	nch := len(b.channels)
	if nch == 0 {
		b.frames = frames
		return
	}

	old := b.frames
	if frames > b.Capacity() {
		b.data = make([]float64, frames*nch)
		old = 0
	}

	stride := len(b.data) / nch
	for ch := range b.channels {
		start := ch * stride
		b.channels[ch] = b.data[start : start+frames : start+stride]
		for i := old; i < frames; i++ {
			b.channels[ch][i] = 0
		}
	}
	b.frames = frames
}

// Zero sets all samples to 0.
func (b *Buffer) Zero() {
	for _, ch := range b.channels {
		for i := range ch {
			ch[i] = 0
		}
	}
}

// CopyFrom resizes b to the frame count of src and copies every channel.
// src must not have more channels than b; extra channels of b are zeroed.
func (b *Buffer) CopyFrom(src [][]float64) {
	frames := 0
	if len(src) > 0 {
		frames = len(src[0])
	}
	b.Resize(frames)
	for ch, dst := range b.channels {
		if ch < len(src) {
			copy(dst, src[ch])
			continue
		}
		for i := range dst {
			dst[i] = 0
		}
	}
}
