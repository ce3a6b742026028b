package dsp

import "math"

// Goertzel is a single-bin DFT detector used for CTCSS tone detection
// (spec.md 4.3). It is cheaper than a full FFT when only one narrow
// frequency needs to be monitored continuously.
type Goertzel struct {
	coeff      float64
	s1, s2     float64
	sampleRate float64
	targetHz   float64
	n          int
	count      int
}

// NewGoertzel builds a detector for targetHz sampled at sampleRateHz,
// evaluated over blocks of n samples.
func NewGoertzel(targetHz, sampleRateHz float64, n int) *Goertzel {
	k := int(0.5 + float64(n)*targetHz/sampleRateHz)
	omega := 2 * math.Pi * float64(k) / float64(n)
	return &Goertzel{
		coeff:      2 * math.Cos(omega),
		sampleRate: sampleRateHz,
		targetHz:   targetHz,
		n:          n,
	}
}

// Add feeds one audio sample into the running block. It returns the block
// magnitude and true when a full block of n samples has been accumulated;
// the internal state is reset for the next block in that case.
func (g *Goertzel) Add(sample float64) (magnitude float64, done bool) {
	s0 := sample + g.coeff*g.s1 - g.s2
	g.s2 = g.s1
	g.s1 = s0
	g.count++

	if g.count < g.n {
		return 0, false
	}

	power := g.s1*g.s1 + g.s2*g.s2 - g.coeff*g.s1*g.s2
	if power < 0 {
		power = 0
	}
	g.s1, g.s2, g.count = 0, 0, 0
	return math.Sqrt(power), true
}
