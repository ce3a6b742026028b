// Package sink implements the Output Fan-out (spec.md 4.4): a polymorphic
// set of sink variants (file, UDP stream, Icecast, HTTP API "boondock",
// Redis), each running its own blocking I/O on its own cooperative task so
// a slow sink never backs up the demodulator that feeds it.
package sink

import "time"

// Frame is one batch of audio handed from a channel to its sinks, plus the
// metadata sinks embed in filenames, headers, or JSON payloads (spec.md
// 4.4: "accept(audio_frame, metadata)").
type Frame struct {
	Samples      []float32
	SampleRateHz float64
	Timestamp    time.Time
	SquelchOpen  bool
	FrequencyHz  float64
	Label        string
}

// State is a sink's reported health (spec.md 4.4: "capability set
// {... status}").
type State string

const (
	StateIdle  State = "idle"
	StateOK    State = "ok"
	StateError State = "error"
)

// Status is the sink's point-in-time health report.
type Status struct {
	State           State
	Reason          string
	Dropped         uint64
	ConsecutiveFail int
}

// Sink is the capability set every output variant implements (spec.md
// 4.4).
type Sink interface {
	Open() error
	// Accept queues fr for writing. Non-blocking: returns false if the
	// sink's internal queue was full, in which case the oldest queued frame
	// was dropped to make room for fr.
	Accept(fr Frame) bool
	Flush() error
	Close() error
	Status() Status
}
