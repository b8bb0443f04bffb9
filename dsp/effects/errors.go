package effects

import "errors"

var (
	// ErrInvalidParam is returned for out-of-range processor parameters.
	ErrInvalidParam = errors.New("invalid parameter")

	// ErrUnsupportedChannels is returned for channel counts other than 1 or 2.
	ErrUnsupportedChannels = errors.New("unsupported channel count")

	// ErrChannelMismatch is returned when a block's channel layout does not
	// match the processor.
	ErrChannelMismatch = errors.New("channel layout mismatch")

	// ErrBlockSize is returned when a block is longer than the prepared
	// block size.
	ErrBlockSize = errors.New("block exceeds prepared size")
)
