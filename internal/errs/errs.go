// Package errs defines the error taxonomy from spec.md 7: each kind
// dictates how far the error is allowed to propagate before a component
// must absorb it.
package errs

import "fmt"

// Kind classifies an error by its propagation/recovery behavior.
type Kind string

const (
	// KindConfig is rejected before start; never reaches a running pipeline.
	KindConfig Kind = "config"
	// KindDeviceInit is a driver open/tune failure.
	KindDeviceInit Kind = "device_init"
	// KindInputTransient is retried internally and never surfaces above
	// the Input Stage.
	KindInputTransient Kind = "input_transient"
	// KindInputFatal transitions a Device to Failed.
	KindInputFatal Kind = "input_fatal"
	// KindChannelizerOverrun is counted, non-fatal.
	KindChannelizerOverrun Kind = "channelizer_overrun"
	// KindSinkTransient is retried with backoff.
	KindSinkTransient Kind = "sink_transient"
	// KindSinkFatal disables the sink; the channel continues.
	KindSinkFatal Kind = "sink_fatal"
	// KindInternal is an assertion/bug; logged and best-effort continued.
	KindInternal Kind = "internal"
)

// Error is a taxonomy-tagged error carrying the component that raised it,
// used both for programmatic handling (transient vs. fatal) and for the
// human-readable error feed (spec.md 6, "Errors (produced)").
type Error struct {
	Kind      Kind
	Component string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Kind, e.Component, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Component, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind.
func New(kind Kind, component, message string) *Error {
	return &Error{Kind: kind, Component: component, Message: message}
}

// Wrap builds an Error of the given kind around an existing cause.
func Wrap(kind Kind, component, message string, cause error) *Error {
	return &Error{Kind: kind, Component: component, Message: message, Cause: cause}
}

// IsFatal reports whether the kind should stop the owning device or
// disable the owning channel/sink outright.
func IsFatal(kind Kind) bool {
	switch kind {
	case KindDeviceInit, KindInputFatal, KindSinkFatal, KindConfig:
		return true
	default:
		return false
	}
}
