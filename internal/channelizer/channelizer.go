package channelizer

import (
	"math"
	"time"

	"github.com/airbandcore/airbandcore/internal/dsp"
	"github.com/airbandcore/airbandcore/internal/ring"
	"github.com/airbandcore/airbandcore/internal/runtime"
)

// Device describes the wideband signal a Channelizer slices into channels
// (spec.md 3, 4.2).
type Device struct {
	Index        int
	SampleRateHz float64
	CenterFreqHz float64
	FFTSize      int
	Window       dsp.WindowKind
}

// OverrunReporter receives a notification whenever a channel's output
// queue was full and the oldest batch had to be dropped (spec.md 4.2:
// "Overruns are reported to metrics").
type OverrunReporter interface {
	ChannelizerOverrun(channelIndex int)
}

// ChannelSpec is one channel's slice of the wideband spectrum.
type ChannelSpec struct {
	Index          int
	FreqHz         float64
	BandwidthHz    float64
	ChannelFFTSize int
	Output         *ring.Buffer[Baseband]
}

type channelState struct {
	spec      ChannelSpec
	buf       []complex128 // scratch sized ChannelFFTSize
	afcBins   float64      // bounded to +-0.5 bin (spec.md 4.3)
}

// Channelizer runs the overlap-save FFT channelizer for one device.
// Not safe for concurrent use; it is driven by the device's single
// cooperative task (spec.md 5).
type Channelizer struct {
	dev      Device
	plan     *runtime.Plan
	window   []float64
	hop      int // wideband samples consumed per tick, 50% overlap
	binHz    float64
	pending  []complex128 // carries unconsumed samples between Process calls
	channels []*channelState
	reporter OverrunReporter
}

// New builds a Channelizer for dev, acquiring its FFT scratch from plan
// (owned per-device, never shared; spec.md 5).
func New(dev Device, plan *runtime.Plan, channels []ChannelSpec, reporter OverrunReporter) *Channelizer {
	window := make([]float64, dev.FFTSize)
	dsp.Window(dev.Window, window)

	states := make([]*channelState, len(channels))
	for i, c := range channels {
		states[i] = &channelState{spec: c, buf: make([]complex128, c.ChannelFFTSize)}
	}

	return &Channelizer{
		dev:      dev,
		plan:     plan,
		window:   window,
		hop:      dev.FFTSize / 2,
		binHz:    dev.SampleRateHz / float64(dev.FFTSize),
		channels: states,
		reporter: reporter,
	}
}

// SetAFC nudges channelIndex's bin-selection offset by deltaBins,
// bounded to +-0.5 bin (spec.md 4.3: "Bounded to +-1/2 bin"). Called by
// the channel's demodulator task between ticks.
func (c *Channelizer) SetAFC(channelIndex int, deltaBins float64) {
	for _, ch := range c.channels {
		if ch.spec.Index == channelIndex {
			ch.afcBins += deltaBins
			if ch.afcBins > 0.5 {
				ch.afcBins = 0.5
			} else if ch.afcBins < -0.5 {
				ch.afcBins = -0.5
			}
			return
		}
	}
}

// Process appends one Input Stage batch (interleaved I/Q float32) and
// runs as many FFT ticks as the accumulated samples allow, pushing
// decimated baseband batches onto each channel's output ring. Never
// blocks (spec.md 4.2).
func (c *Channelizer) Process(iq []float32, ts time.Time) {
	n := len(iq) / 2
	for i := 0; i < n; i++ {
		c.pending = append(c.pending, complex(float64(iq[i*2]), float64(iq[i*2+1])))
	}

	for len(c.pending) >= c.dev.FFTSize {
		c.tick(c.pending[:c.dev.FFTSize], ts)
		c.pending = c.pending[c.hop:]
	}
}

func (c *Channelizer) tick(block []complex128, ts time.Time) {
	wide := c.plan.Wideband
	for i := 0; i < c.dev.FFTSize; i++ {
		wide[i] = block[i] * complex(c.window[i], 0)
	}
	dsp.FFT(wide)

	for _, ch := range c.channels {
		c.extractChannel(ch, wide)
		out := Baseband{
			Samples:   append([]complex128(nil), ch.buf[len(ch.buf)/2:]...),
			Timestamp: ts,
		}
		if evicted := ch.spec.Output.Push(out); evicted && c.reporter != nil {
			c.reporter.ChannelizerOverrun(ch.spec.Index)
		}
	}
}

// extractChannel copies the channel's bin range (spec.md 4.2 step 1-2)
// into ch.buf, tapers the edges, rotates the channel's center bin to
// index 0 (DC), and inverse-transforms in place.
func (c *Channelizer) extractChannel(ch *channelState, wide []complex128) {
	chanSize := ch.spec.ChannelFFTSize
	offsetHz := ch.spec.FreqHz - c.dev.CenterFreqHz
	centerBin := math.Round(offsetHz/c.binHz+ch.afcBins) // spec.md 4.3: AFC adds to the next bin-shift
	start := int(centerBin) - chanSize/2

	fftSize := c.dev.FFTSize
	for i := 0; i < chanSize; i++ {
		src := ((start+i)%fftSize + fftSize) % fftSize
		ch.buf[i] = wide[src]
	}
	dsp.RaisedCosineTaper(ch.buf, chanSize/8)
	half := chanSize / 2
	for i := 0; i < half; i++ {
		ch.buf[i], ch.buf[i+half] = ch.buf[i+half], ch.buf[i]
	}
	dsp.IFFT(ch.buf)
}

// Decimation returns fft_size / channel_fft_size for channelIndex, the
// ratio between the device sample rate and the channel's output rate
// (spec.md 4.2 contract).
func (c *Channelizer) Decimation(channelIndex int) int {
	for _, ch := range c.channels {
		if ch.spec.Index == channelIndex {
			return c.dev.FFTSize / ch.spec.ChannelFFTSize
		}
	}
	return 1
}

// OutputSampleRate returns the decimated sample rate of channelIndex's
// baseband stream.
func (c *Channelizer) OutputSampleRate(channelIndex int) float64 {
	d := c.Decimation(channelIndex)
	if d == 0 {
		return c.dev.SampleRateHz
	}
	return c.dev.SampleRateHz / float64(d)
}
