package dsp

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFFTThenIFFTRoundTrips(t *testing.T) {
	const n = 64
	orig := make([]complex128, n)
	for i := range orig {
		orig[i] = complex(math.Sin(2*math.Pi*float64(i)/float64(n)), 0)
	}

	x := append([]complex128(nil), orig...)
	FFT(x)
	IFFT(x)

	for i := range orig {
		require.InDelta(t, real(orig[i]), real(x[i]), 1e-9)
		require.InDelta(t, imag(orig[i]), imag(x[i]), 1e-9)
	}
}

func TestFFTPureToneProducesSingleBin(t *testing.T) {
	const n = 128
	const k = 5 // bin index of the tone
	x := make([]complex128, n)
	for i := range x {
		angle := 2 * math.Pi * float64(k) * float64(i) / float64(n)
		x[i] = complex(math.Cos(angle), math.Sin(angle))
	}
	FFT(x)

	peakBin, peakMag := 0, 0.0
	for i, v := range x {
		if m := cmplx.Abs(v); m > peakMag {
			peakMag, peakBin = m, i
		}
	}
	require.Equal(t, k, peakBin)
}

func TestIsPowerOfTwo(t *testing.T) {
	require.True(t, IsPowerOfTwo(2048))
	require.True(t, IsPowerOfTwo(1))
	require.False(t, IsPowerOfTwo(0))
	require.False(t, IsPowerOfTwo(3000))
}
