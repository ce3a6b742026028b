package input

// SampleRingCapacity returns the per-device circular sample buffer size
// (in complex IQ samples) sized so worst-case FFT-frame latency is bounded
// to ~2 * fftSize/sampleRateHz (spec.md 4.1). No such buffer is allocated
// between the Input Stage and the Channelizer: the Device task hands each
// Frame directly to the Channelizer, whose pending slice carries
// unconsumed samples between ticks.
func SampleRingCapacity(fftSize int) int {
	if fftSize <= 0 {
		fftSize = 2048
	}
	return nextPowerOfTwo(2 * fftSize)
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
