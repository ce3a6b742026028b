// Package errfeed implements the process-wide bounded error queue
// (spec.md 5, 6: "error-log bounded queue (<=128 entries, ring-eviction)").
// It is one of only two legitimately process-wide structures named in
// spec.md 9 ("Global state"); the other is the metering bus.
package errfeed

import (
	"sync"
	"time"

	"github.com/airbandcore/airbandcore/internal/errs"
)

// DefaultCapacity is the ring-eviction bound named in spec.md.
const DefaultCapacity = 128

// Entry is one human-readable error record, timestamped and component
// tagged (spec.md 7: "errors appear in the error feed with a timestamp and
// a component tag").
type Entry struct {
	Time      time.Time
	Component string
	Kind      errs.Kind
	Message   string
}

// Feed is a bounded, ring-evicting, concurrency-safe log of recent errors.
type Feed struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
}

// New builds a Feed with the given capacity; capacity <= 0 uses
// DefaultCapacity.
func New(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{capacity: capacity}
}

// Report appends an error to the feed, evicting the oldest entry if full.
func (f *Feed) Report(err *errs.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := Entry{
		Time:      time.Now(),
		Component: err.Component,
		Kind:      err.Kind,
		Message:   err.Error(),
	}
	if len(f.entries) >= f.capacity {
		f.entries = f.entries[1:]
	}
	f.entries = append(f.entries, entry)
}

// List returns a snapshot copy of all entries, oldest first.
func (f *Feed) List() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Clear empties the feed. Corresponds to the control plane's DELETE on the
// errors resource (spec.md 6).
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
}
