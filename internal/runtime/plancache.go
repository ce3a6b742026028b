package runtime

import "sync"

// Plan holds the FFT scratch buffers for one device's channelizer tick:
// the wideband working buffer and the windowed-sample holding buffer.
// Reused across ticks so the wideband FFT buffer is not reallocated per
// tick (spec.md 5: "The FFT plan and its scratch buffers are owned per
// Device (not shared across devices)").
type Plan struct {
	FFTSize  int
	Wideband []complex128
	Windowed []float64
}

// PlanCache hands out one Plan per device index and never shares a Plan
// between two devices, even though the cache itself lives on the shared
// Runtime.
type PlanCache struct {
	mu    sync.Mutex
	plans map[int]*Plan
}

// NewPlanCache builds an empty cache.
func NewPlanCache() *PlanCache {
	return &PlanCache{plans: make(map[int]*Plan)}
}

// Get returns the Plan for deviceIndex, allocating one sized for fftSize
// if this is the first request or the size changed.
func (c *PlanCache) Get(deviceIndex, fftSize int) *Plan {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.plans[deviceIndex]
	if ok && p.FFTSize == fftSize {
		return p
	}
	p = &Plan{
		FFTSize:  fftSize,
		Wideband: make([]complex128, fftSize),
		Windowed: make([]float64, fftSize),
	}
	c.plans[deviceIndex] = p
	return p
}

// Release drops a device's plan so its buffers can be collected; the next
// Get for that device allocates a fresh Plan. Device shutdown does not
// call it.
func (c *PlanCache) Release(deviceIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.plans, deviceIndex)
}
