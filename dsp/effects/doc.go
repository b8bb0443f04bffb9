// Package effects provides the granular delay processor.
//
// GrainDelay combines a feedback delay with a cloud of short grains read
// back from the delay history. Grains are scheduled, captured, enveloped
// and optionally reversed or pitch shifted by the subpackages:
//   - github.com/cwbudde/algo-graindelay/dsp/effects/granular
//   - github.com/cwbudde/algo-graindelay/dsp/effects/pitch
//
// Processing is block based, in place and allocation free once prepared.
package effects
