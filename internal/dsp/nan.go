package dsp

import "math"

// IsBad reports whether x is NaN or +/-Inf. Every demodulator biquad stage
// checks its output against this after each sample (spec.md 9, "NaN
// containment") so a blown-up filter state can be reset and the channel
// quarantined rather than propagating garbage downstream.
func IsBad(x float64) bool {
	return math.IsNaN(x) || math.IsInf(x, 0)
}
