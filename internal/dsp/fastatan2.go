package dsp

import "math"

// FastAtan2 is a polynomial atan2 approximation (max error ~0.01 rad, about 0.6 degrees)
// used by the NFM discriminator (spec.md 4.3: "fast atan2 approximation"),
// several times cheaper than math.Atan2 per sample.
func FastAtan2(y, x float64) float64 {
	if x == 0 && y == 0 {
		return 0
	}

	abs_y := math.Abs(y) + 1e-20 // avoid 0/0
	var angle float64
	if x >= 0 {
		r := (x - abs_y) / (x + abs_y)
		angle = 0.1963*r*r*r - 0.9817*r + math.Pi/4
	} else {
		r := (x + abs_y) / (abs_y - x)
		angle = 0.1963*r*r*r - 0.9817*r + 3*math.Pi/4
	}
	if y < 0 {
		return -angle
	}
	return angle
}
