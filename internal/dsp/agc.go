package dsp

// PeakValleyAGC tracks a fast-attack/slow-decay peak and valley envelope.
// Adapted from the teacher's demod_9600.go agc() helper, which produced a
// mark/space slicing level for a baud-rate demodulator. The squelch does
// not use it: its noise floor comes from MinTracker and its signal level
// from the batch RMS magnitude.
type PeakValleyAGC struct {
	fastAttack float64
	slowDecay  float64
	peak       float64
	valley     float64
}

// NewPeakValleyAGC builds a tracker with the given attack/decay rates in
// (0, 1]; attack should be larger than decay.
func NewPeakValleyAGC(fastAttack, slowDecay float64) *PeakValleyAGC {
	return &PeakValleyAGC{fastAttack: fastAttack, slowDecay: slowDecay}
}

// Update feeds one magnitude sample and returns the updated peak and
// valley envelopes.
func (a *PeakValleyAGC) Update(in float64) (peak, valley float64) {
	if in >= a.peak {
		a.peak = in*a.fastAttack + a.peak*(1-a.fastAttack)
	} else {
		a.peak = in*a.slowDecay + a.peak*(1-a.slowDecay)
	}
	if in <= a.valley {
		a.valley = in*a.fastAttack + a.valley*(1-a.fastAttack)
	} else {
		a.valley = in*a.slowDecay + a.valley*(1-a.slowDecay)
	}
	return a.peak, a.valley
}

// MinTracker is a slow minimum-following estimator used for the squelch
// noise floor (spec.md 4.3: "minimum-tracker over a longer window, 1-5s").
// It decays toward new minima quickly and creeps back up slowly so a burst
// of silence is found but a burst of signal doesn't permanently raise the
// floor.
type MinTracker struct {
	riseRate float64
	value    float64
	init     bool
}

// NewMinTracker builds a tracker; riseRate in (0, 1] controls how fast the
// floor estimate climbs back up between minima.
func NewMinTracker(riseRate float64) *MinTracker {
	return &MinTracker{riseRate: riseRate}
}

// Update feeds one magnitude sample and returns the updated floor estimate.
func (m *MinTracker) Update(in float64) float64 {
	if !m.init {
		m.value = in
		m.init = true
		return m.value
	}
	if in < m.value {
		m.value = in
	} else {
		m.value += (in - m.value) * m.riseRate
	}
	return m.value
}
