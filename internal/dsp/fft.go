package dsp

import "math"

// FFT computes the radix-2 Cooley-Tukey in-place forward transform of x.
// len(x) must be a power of two; device.New rejects a non-power-of-two
// fft_size/channel_fft_size at device activation (spec.md 4.2).
func FFT(x []complex128) {
	fft(x, false)
}

// IFFT computes the in-place inverse transform of x, including the 1/N
// scaling.
func IFFT(x []complex128) {
	fft(x, true)
	n := complex(float64(len(x)), 0)
	for i := range x {
		x[i] /= n
	}
}

func fft(x []complex128, inverse bool) {
	n := len(x)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	sign := -1.0
	if inverse {
		sign = 1.0
	}

	for length := 2; length <= n; length <<= 1 {
		ang := sign * 2 * math.Pi / float64(length)
		wlen := complex(math.Cos(ang), math.Sin(ang))
		for i := 0; i < n; i += length {
			w := complex(1, 0)
			half := length / 2
			for k := 0; k < half; k++ {
				u := x[i+k]
				v := x[i+k+half] * w
				x[i+k] = u + v
				x[i+k+half] = u - v
				w *= wlen
			}
		}
	}
}

// IsPowerOfTwo reports whether n is a positive power of two, the
// precondition FFT/IFFT require.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
