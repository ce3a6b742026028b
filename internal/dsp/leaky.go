package dsp

import "math"

// LeakyIntegrator is a single-pole IIR low-pass used for the AM path's slow
// DC estimate (tau ~= 0.5s) and for the NFM path's de-emphasis. The Input
// Stage's I/Q DC blocker is the separate DCBlocker type.
type LeakyIntegrator struct {
	pole  float64
	value float64
}

// NewLeakyIntegrator builds a leaky integrator with the given time constant
// in seconds at sampleRateHz. tauSeconds <= 0 disables leaking (pole = 0).
func NewLeakyIntegrator(tauSeconds, sampleRateHz float64) *LeakyIntegrator {
	if tauSeconds <= 0 || sampleRateHz <= 0 {
		return &LeakyIntegrator{}
	}
	return &LeakyIntegrator{pole: math.Exp(-1 / (tauSeconds * sampleRateHz))}
}

// NewLeakyIntegratorPole builds one directly from a pole value in [0, 1),
// used for the NFM de-emphasis pole derived from its time constant.
func NewLeakyIntegratorPole(pole float64) *LeakyIntegrator {
	return &LeakyIntegrator{pole: pole}
}

// Update feeds one sample and returns the updated running estimate.
func (l *LeakyIntegrator) Update(x float64) float64 {
	l.value = l.pole*l.value + (1-l.pole)*x
	return l.value
}

// Value returns the current estimate without updating it.
func (l *LeakyIntegrator) Value() float64 { return l.value }

// Reset clears accumulated state.
func (l *LeakyIntegrator) Reset() { l.value = 0 }
