// Package metering implements the single-producer multi-consumer metrics
// bus described in spec.md 4.5: one SignalMetrics snapshot published per
// channel per demodulator tick (~100ms), readable by any number of control
// plane goroutines via a versioned pointer swap that never blocks the
// producer.
package metering

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Status mirrors spec.md 6's per-channel "status" field.
type Status string

const (
	StatusSignal   Status = "signal"
	StatusNoSignal Status = "no-signal"
	StatusError    Status = "error"
)

// Snapshot is spec.md 3's "Signal Metrics" entity plus the identifying and
// presentation fields spec.md 6 lists for the metrics API.
type Snapshot struct {
	Version        uint64
	DeviceIndex    int
	ChannelIndex   int
	Label          string
	FrequencyMHz   float64
	SignalLevelDB  float64
	NoiseLevelDB   float64
	SquelchLevelDB float64
	SNRDB          float64
	CTCSSCount     int
	HasFileOutput  bool
	IsRecording    bool
	HasSignal      bool
	Status         Status
	ErrorReason    string
	Timestamp      time.Time
}

type key struct {
	device  int
	channel int
}

// Bus holds one slot per channel. Each slot is an atomic.Pointer so
// Publish never blocks List/Get, matching spec.md 5's "Metric snapshots
// are monotonic in their version counter" and "never blocking the
// producer".
type Bus struct {
	slots sync.Map // key -> *atomic.Pointer[Snapshot]
	vers  sync.Map // key -> *atomic.Uint64
}

// New builds an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Publish atomically swaps in a new snapshot for (deviceIndex,
// channelIndex), stamping it with the next version number and the current
// time. Never blocks a concurrent reader.
func (b *Bus) Publish(deviceIndex, channelIndex int, s Snapshot) {
	k := key{deviceIndex, channelIndex}

	verAny, _ := b.vers.LoadOrStore(k, new(atomic.Uint64))
	ver := verAny.(*atomic.Uint64)
	s.Version = ver.Add(1)
	s.Timestamp = time.Now()

	ptrAny, _ := b.slots.LoadOrStore(k, new(atomic.Pointer[Snapshot]))
	ptr := ptrAny.(*atomic.Pointer[Snapshot])
	cp := s
	ptr.Store(&cp)
}

// Get returns the latest snapshot for one channel, if any has been
// published yet.
func (b *Bus) Get(deviceIndex, channelIndex int) (Snapshot, bool) {
	ptrAny, ok := b.slots.Load(key{deviceIndex, channelIndex})
	if !ok {
		return Snapshot{}, false
	}
	p := ptrAny.(*atomic.Pointer[Snapshot]).Load()
	if p == nil {
		return Snapshot{}, false
	}
	return *p, true
}

// List returns every published snapshot, sorted by (device, channel), for
// the control plane's flat metrics list (spec.md 4.5, 6).
func (b *Bus) List() []Snapshot {
	var out []Snapshot
	b.slots.Range(func(_, v any) bool {
		p := v.(*atomic.Pointer[Snapshot]).Load()
		if p != nil {
			out = append(out, *p)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeviceIndex != out[j].DeviceIndex {
			return out[i].DeviceIndex < out[j].DeviceIndex
		}
		return out[i].ChannelIndex < out[j].ChannelIndex
	})
	return out
}

// Remove deletes a channel's slot, used when a channel is disabled so it
// stops appearing in List.
func (b *Bus) Remove(deviceIndex, channelIndex int) {
	k := key{deviceIndex, channelIndex}
	b.slots.Delete(k)
	b.vers.Delete(k)
}
