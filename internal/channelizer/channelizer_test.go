package channelizer

import (
	"math"
	"testing"
	"time"

	"github.com/airbandcore/airbandcore/internal/dsp"
	"github.com/airbandcore/airbandcore/internal/ring"
	"github.com/airbandcore/airbandcore/internal/runtime"
)

const (
	testFFTSize    = 1024
	testChanFFT    = 128
	testSampleRate = 1_000_000.0
)

func newTestChannelizer(t *testing.T, channelFreqHz float64) (*Channelizer, *ring.Buffer[Baseband]) {
	t.Helper()
	dev := Device{
		Index:        0,
		SampleRateHz: testSampleRate,
		CenterFreqHz: 0,
		FFTSize:      testFFTSize,
		Window:       dsp.WindowHann,
	}
	plan := runtime.NewPlanCache().Get(0, testFFTSize)
	out := ring.New[Baseband](8)
	spec := ChannelSpec{Index: 1, FreqHz: channelFreqHz, BandwidthHz: 12500, ChannelFFTSize: testChanFFT, Output: out}
	return New(dev, plan, []ChannelSpec{spec}, nil), out
}

// toneIQ synthesizes n interleaved I/Q samples of a complex tone at
// freqHz against testSampleRate.
func toneIQ(n int, freqHz float64) []float32 {
	iq := make([]float32, n*2)
	for i := 0; i < n; i++ {
		phase := 2 * math.Pi * freqHz * float64(i) / testSampleRate
		iq[i*2] = float32(math.Cos(phase))
		iq[i*2+1] = float32(math.Sin(phase))
	}
	return iq
}

func meanMagnitude(samples []complex128) float64 {
	var sum float64
	for _, s := range samples {
		sum += math.Hypot(real(s), imag(s))
	}
	return sum / float64(len(samples))
}

func TestChannelizerPassesInBandTone(t *testing.T) {
	binHz := testSampleRate / testFFTSize
	freq := binHz * 10 // well within the channel's selected bin range
	cz, out := newTestChannelizer(t, freq)

	iq := toneIQ(testFFTSize*4, freq)
	cz.Process(iq, time.Now())

	var got Baseband
	found := false
	for {
		b, ok := out.TryPop()
		if !ok {
			break
		}
		got = b
		found = true
	}
	if !found {
		t.Fatal("expected at least one baseband batch")
	}
	if mag := meanMagnitude(got.Samples); mag < 0.1 {
		t.Fatalf("expected in-band tone to survive with non-trivial magnitude, got %v", mag)
	}
}

func TestChannelizerAttenuatesOutOfBandTone(t *testing.T) {
	binHz := testSampleRate / testFFTSize
	channelFreq := binHz * 10
	cz, out := newTestChannelizer(t, channelFreq)

	// A tone far outside the channel's bin window (quarter of Nyquist away).
	offTone := toneIQ(testFFTSize*4, testSampleRate/4)
	cz.Process(offTone, time.Now())

	// Measure the out-of-band batches before the in-band tone is processed:
	// the output ring is drop-oldest, so they would otherwise be evicted.
	first, ok := out.TryPop()
	if !ok {
		t.Fatal("expected a baseband batch for the out-of-band tone")
	}
	offMag := meanMagnitude(first.Samples)
	for {
		if _, ok := out.TryPop(); !ok {
			break
		}
	}

	inBandTone := toneIQ(testFFTSize*4, channelFreq)
	cz.Process(inBandTone, time.Now())

	var onMag float64
	for {
		b, ok := out.TryPop()
		if !ok {
			break
		}
		onMag = meanMagnitude(b.Samples)
	}
	if onMag <= offMag {
		t.Fatalf("expected in-band magnitude (%v) to exceed out-of-band magnitude (%v)", onMag, offMag)
	}
}

func TestDecimationRatio(t *testing.T) {
	cz, _ := newTestChannelizer(t, 0)
	if got := cz.Decimation(1); got != testFFTSize/testChanFFT {
		t.Fatalf("expected decimation %d, got %d", testFFTSize/testChanFFT, got)
	}
	wantRate := testSampleRate / float64(testFFTSize/testChanFFT)
	if got := cz.OutputSampleRate(1); got != wantRate {
		t.Fatalf("expected output rate %v, got %v", wantRate, got)
	}
}

type countingReporter struct{ overruns int }

func (r *countingReporter) ChannelizerOverrun(int) { r.overruns++ }

func TestChannelizerReportsOverrunWhenQueueFull(t *testing.T) {
	dev := Device{Index: 0, SampleRateHz: testSampleRate, CenterFreqHz: 0, FFTSize: testFFTSize, Window: dsp.WindowHann}
	plan := runtime.NewPlanCache().Get(0, testFFTSize)
	out := ring.New[Baseband](1) // tiny queue forces eviction
	spec := ChannelSpec{Index: 2, FreqHz: 0, BandwidthHz: 12500, ChannelFFTSize: testChanFFT, Output: out}
	reporter := &countingReporter{}
	cz := New(dev, plan, []ChannelSpec{spec}, reporter)

	iq := toneIQ(testFFTSize*8, 1000)
	cz.Process(iq, time.Now())

	if reporter.overruns == 0 {
		t.Fatal("expected at least one overrun to be reported")
	}
}
