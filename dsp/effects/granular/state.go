package granular

// State is the lifecycle stage of a grain.
//
//	Scheduled -> Captured -> Playing -> Finished
//	             Captured -> Finished (playback window already missed)
type State int

const (
	// StateScheduled grains wait for their source window to be written.
	StateScheduled State = iota
	// StateCaptured grains hold enveloped audio and wait for their start.
	StateCaptured
	// StatePlaying grains are being mixed into the output.
	StatePlaying
	// StateFinished grains are removed at the end of the block.
	StateFinished
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateCaptured:
		return "captured"
	case StatePlaying:
		return "playing"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}
