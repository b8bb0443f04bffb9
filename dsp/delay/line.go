package delay

import (
	"errors"
	"fmt"
)

// ErrInvalidSize is returned for non-positive line sizes.
var ErrInvalidSize = errors.New("delay size must be > 0")

// Line is a circular history buffer of past samples.
//
// Every sample is stored twice, size apart, so any window of at most size
// samples is available as one contiguous slice without copying. Writes are
// append-only; Written counts every sample ever pushed.
type Line struct {
	buffer   []float64
	size     int
	writePos int
	written  int64
}

// New returns a delay line holding size samples of history.
func New(size int) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return &Line{buffer: make([]float64, 2*size), size: size}, nil
}

// Len returns the history capacity in samples.
func (d *Line) Len() int {
	return d.size
}

// Written returns the number of samples pushed since creation or Reset.
func (d *Line) Written() int64 {
	return d.written
}

// Write appends one sample, overwriting the oldest.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample
	d.buffer[d.writePos+d.size] = sample
	d.writePos++
	if d.writePos >= d.size {
		d.writePos = 0
	}
	d.written++
}

// Push appends samples in order, overwriting the oldest.
func (d *Line) Push(samples []float64) {
	if len(samples) > d.size {
		// Only the newest size samples survive.
		d.written += int64(len(samples) - d.size)
		samples = samples[len(samples)-d.size:]
	}
	for len(samples) > 0 {
		n := copy(d.buffer[d.writePos:d.size], samples)
		copy(d.buffer[d.writePos+d.size:], samples[:n])
		samples = samples[n:]
		d.writePos += n
		if d.writePos >= d.size {
			d.writePos = 0
		}
		d.written += int64(n)
	}
}

// Read returns the sample delay samples behind the write head.
// delay=1 is the most recently written sample.
func (d *Line) Read(delay int) float64 {
	if delay < 1 || delay > d.size {
		return 0
	}
	return d.buffer[d.writePos+d.size-delay]
}

// Window returns a read-only view of count samples in chronological order.
// The newest sample of the view lies offsetBehindHead samples behind the
// most recently written one, so Window(0, n) is the last n samples pushed.
//
// Returns nil if the window does not fit the line. History that was never
// written reads as silence; use Filled to gate on real data. The view is
// invalidated by the next write.
func (d *Line) Window(offsetBehindHead, count int) []float64 {
	if offsetBehindHead < 0 || count < 0 || offsetBehindHead+count > d.size {
		return nil
	}
	end := d.writePos + d.size - offsetBehindHead
	return d.buffer[end-count : end : end]
}

// Filled reports whether the window described by offsetBehindHead and
// count fits the line and lies entirely in history that was written.
func (d *Line) Filled(offsetBehindHead, count int) bool {
	if offsetBehindHead < 0 || count < 0 || offsetBehindHead+count > d.size {
		return false
	}
	return int64(offsetBehindHead+count) <= d.written
}

// Resize grows the line to hold at least minSize samples, keeping the
// existing history aligned to the write head. It never shrinks.
func (d *Line) Resize(minSize int) error {
	if minSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, minSize)
	}
	if minSize <= d.size {
		return nil
	}

	history := d.Window(0, d.size)
	grown := make([]float64, 2*minSize)
	// Old history occupies the newest d.size slots, oldest first.
	copy(grown[minSize-d.size:minSize], history)
	copy(grown[2*minSize-d.size:], history)

	d.buffer = grown
	d.size = minSize
	d.writePos = 0

	return nil
}

// Reset clears history and the written counter.
func (d *Line) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
	d.written = 0
}
