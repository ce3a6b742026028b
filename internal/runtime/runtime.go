// Package runtime provides the Runtime handle that the rest of the
// pipeline is threaded through, confining the few legitimately
// process-wide structures (spec.md 9: "confine them to a Runtime handle
// passed through the pipeline; only the error feed and metric snapshot
// are legitimately process-wide").
package runtime

import (
	"github.com/airbandcore/airbandcore/internal/errfeed"
	"github.com/airbandcore/airbandcore/internal/metering"
	"github.com/charmbracelet/log"
)

// Runtime is held by the top-level pipeline, which hands its members (plan
// cache, metering bus, error feed) down to Device, Channel, and Sink
// construction. It owns no device-specific
// state itself -- that stays with the owning Device (spec.md 9, "Cyclic
// references avoided").
type Runtime struct {
	Log      *log.Logger
	Metrics  *metering.Bus
	Errors   *errfeed.Feed
	fftPlans *PlanCache
}

// New builds a Runtime with the given logger. A fresh metering bus,
// error feed, and FFT plan cache are created internally.
func New(logger *log.Logger) *Runtime {
	return &Runtime{
		Log:      logger,
		Metrics:  metering.New(),
		Errors:   errfeed.New(errfeed.DefaultCapacity),
		fftPlans: NewPlanCache(),
	}
}

// Plans returns the FFT plan cache. Plans are owned per Device (spec.md
// 5: "The FFT plan and its scratch buffers are owned per Device (not
// shared across devices)"); the cache keys on device index to enforce
// that even though it lives on the shared Runtime.
func (r *Runtime) Plans() *PlanCache { return r.fftPlans }
