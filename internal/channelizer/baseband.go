// Package channelizer implements the overlap-save FFT channelizer
// (spec.md 4.2): one wideband FFT per device tick, narrow per-channel bin
// extraction, and an inverse transform down to complex baseband at the
// channel's decimated rate.
package channelizer

import "time"

// Baseband is one decimated complex-baseband batch handed to a channel's
// demodulator (spec.md 4.2 step 4: "Append to a per-channel complex ring
// buffer consumed by the demodulator").
type Baseband struct {
	Samples   []complex128
	Timestamp time.Time
}
