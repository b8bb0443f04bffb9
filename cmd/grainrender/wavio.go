package main

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-graindelay/dsp/dither"
)

const wavFormatPCM = 1

// audioClip is planar audio normalized to [-1, 1].
type audioClip struct {
	SampleRate int
	BitDepth   int
	Channels   [][]float64
}

// Frames returns the number of samples per channel.
func (c *audioClip) Frames() int {
	if len(c.Channels) == 0 {
		return 0
	}
	return len(c.Channels[0])
}

func readWAV(path string) (*audioClip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("unsupported WAV format %d, only integer PCM is supported", dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, errors.New("WAV file has no channels")
	}

	bitDepth := int(dec.SampleBitDepth())
	if bitDepth == 8 {
		// 8-bit WAV is unsigned.
		for i, v := range buf.Data {
			buf.Data[i] = v - 128
		}
	}
	return &audioClip{
		SampleRate: buf.Format.SampleRate,
		BitDepth:   bitDepth,
		Channels:   deinterleave(buf.Data, buf.Format.NumChannels, fullScale(bitDepth)),
	}, nil
}

// writeWAV encodes clip as integer PCM and returns how many samples were
// clipped to full scale.
func writeWAV(path string, clip *audioClip, opts ...dither.Option) (int, error) {
	bitDepth := outputBitDepth(clip.BitDepth)
	quantizers := make([]*dither.Quantizer, len(clip.Channels))
	for ch := range quantizers {
		q, err := dither.NewQuantizer(bitDepth, opts...)
		if err != nil {
			return 0, err
		}
		quantizers[ch] = q
	}
	data := interleave(clip.Channels, quantizers)

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	nch := len(clip.Channels)
	enc := wav.NewEncoder(f, clip.SampleRate, bitDepth, nch, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: nch, SampleRate: clip.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return 0, err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return 0, err
	}

	clipped := 0
	for _, q := range quantizers {
		clipped += q.Clipped()
	}
	return clipped, f.Close()
}

// outputBitDepth keeps the input depth where the encoder writes signed PCM
// and falls back to 16 bit otherwise.
func outputBitDepth(bitDepth int) int {
	switch bitDepth {
	case 16, 24, 32:
		return bitDepth
	default:
		return 16
	}
}

func fullScale(bitDepth int) float64 {
	if bitDepth <= 1 {
		return 1
	}
	return math.Ldexp(1, bitDepth-1)
}

func deinterleave(data []int, channels int, scale float64) [][]float64 {
	frames := len(data) / channels
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}
	inv := 1 / scale
	for i := range frames {
		for ch := range channels {
			out[ch][i] = float64(data[i*channels+ch]) * inv
		}
	}
	return out
}

// interleave quantizes each channel with its own quantizer.
func interleave(channels [][]float64, quantizers []*dither.Quantizer) []int {
	if len(channels) == 0 {
		return nil
	}
	frames := len(channels[0])
	nch := len(channels)
	data := make([]int, frames*nch)
	for i := range frames {
		for ch := range nch {
			data[i*nch+ch] = quantizers[ch].Quantize(channels[ch][i])
		}
	}
	return data
}
