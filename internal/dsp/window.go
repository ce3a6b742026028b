package dsp

import "math"

// WindowKind selects the taper applied to the wideband channelizer input.
// spec.md 4.2 leaves the exact window implementation-defined but requires
// it be fixed across a run.
type WindowKind int

const (
	WindowHann WindowKind = iota
	WindowHamming
)

// Window fills dst with a window of the given kind and length.
func Window(kind WindowKind, dst []float64) {
	n := len(dst)
	if n == 0 {
		return
	}
	if n == 1 {
		dst[0] = 1
		return
	}
	switch kind {
	case WindowHamming:
		for i := range dst {
			dst[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		}
	default:
		for i := range dst {
			dst[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		}
	}
}

// RaisedCosineTaper multiplies the first and last taperLen bins of dst by a
// raised-cosine ramp, used to soften the edges of the bin range copied into
// the per-channel IFFT buffer (spec.md 4.2 step 2).
func RaisedCosineTaper(dst []complex128, taperLen int) {
	n := len(dst)
	if taperLen <= 0 || 2*taperLen > n {
		return
	}
	for i := 0; i < taperLen; i++ {
		w := 0.5 - 0.5*math.Cos(math.Pi*float64(i)/float64(taperLen))
		dst[i] *= complex(w, 0)
		dst[n-1-i] *= complex(w, 0)
	}
}
