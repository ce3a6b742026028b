package dsp

import (
	"math"
	"testing"
)

func TestFastAtan2MatchesStandardLibraryClosely(t *testing.T) {
	cases := []struct{ y, x float64 }{
		{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
		{0, 1}, {1, 0}, {0, -1}, {-1, 0},
		{0.001, 1}, {5, 3}, {-5, 3},
	}
	for _, c := range cases {
		want := math.Atan2(c.y, c.x)
		got := FastAtan2(c.y, c.x)
		if diff := math.Abs(want - got); diff > 0.01 {
			t.Errorf("FastAtan2(%v,%v) = %v, want ~%v (diff %v)", c.y, c.x, got, want, diff)
		}
	}
}
