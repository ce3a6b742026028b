// Package device wires one Device's Input Stage and Channelizer together
// and owns its Channels, matching spec.md 5's single cooperative task per
// device for Input+Channelizer ("tightly coupled; FFT throughput is the
// bottleneck").
package device

import (
	"context"
	"sync"

	"github.com/airbandcore/airbandcore/internal/channel"
	"github.com/airbandcore/airbandcore/internal/channelizer"
	"github.com/airbandcore/airbandcore/internal/config"
	"github.com/airbandcore/airbandcore/internal/dsp"
	"github.com/airbandcore/airbandcore/internal/errfeed"
	"github.com/airbandcore/airbandcore/internal/errs"
	"github.com/airbandcore/airbandcore/internal/input"
	"github.com/airbandcore/airbandcore/internal/metering"
	"github.com/airbandcore/airbandcore/internal/ring"
	"github.com/airbandcore/airbandcore/internal/runtime"
)

// State mirrors spec.md 3's Device.state.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StateFailed  State = "failed"
)

const defaultChannelFFTSize = 256

// Device owns one Input Stage, one Channelizer, and every Channel
// configured for it.
type Device struct {
	cfg     config.Device
	stage   *input.Stage
	cz      *channelizer.Channelizer
	channels []*channel.Channel
	errFeed *errfeed.Feed

	mu    sync.Mutex
	state State

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// overrunReporter adapts the channelizer's per-channel overrun callback
// onto the shared error feed (spec.md 4.2: "Overruns are reported to
// metrics").
type overrunReporter struct {
	deviceIndex int
	errFeed     *errfeed.Feed
}

func (r *overrunReporter) ChannelizerOverrun(channelIndex int) {
	if r.errFeed == nil {
		return
	}
	r.errFeed.Report(errs.New(errs.KindChannelizerOverrun, "channelizer",
		"channel overrun: device "+itoa(r.deviceIndex)+" channel "+itoa(channelIndex)))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// New builds a Device: its Input Stage wrapping driver, its Channelizer
// sized from cfg.FFTSize, and one channel.Channel per enabled cfg.Channels
// entry.
func New(cfg config.Device, driver input.Driver, plans *runtime.PlanCache, metrics *metering.Bus, errFeed *errfeed.Feed) (*Device, error) {
	fftSize := cfg.FFTSize
	if fftSize <= 0 {
		fftSize = 2048
	}
	if !dsp.IsPowerOfTwo(fftSize) || (cfg.ChannelFFTSize > 0 && !dsp.IsPowerOfTwo(cfg.ChannelFFTSize)) {
		return nil, errs.New(errs.KindConfig, "device", "fft_size and channel_fft_size must be powers of two")
	}

	plan := plans.Get(cfg.Index, fftSize)
	stage := input.NewStage(driver)

	czDev := channelizer.Device{
		Index:        cfg.Index,
		SampleRateHz: cfg.SampleRateHz,
		CenterFreqHz: cfg.CenterFreqHz,
		FFTSize:      fftSize,
		Window:       dsp.WindowHann,
	}

	var specs []channelizer.ChannelSpec
	rings := map[int]*ring.Buffer[channelizer.Baseband]{}
	for _, ch := range cfg.Channels {
		if !ch.Enabled {
			continue
		}
		chanFFT := cfg.ChannelFFTSize
		if chanFFT <= 0 {
			chanFFT = defaultChannelFFTSize
		}
		rb := ring.New[channelizer.Baseband](4)
		rings[ch.Index] = rb
		specs = append(specs, channelizer.ChannelSpec{
			Index:          ch.Index,
			FreqHz:         ch.FreqHz,
			BandwidthHz:    ch.BandwidthHz,
			ChannelFFTSize: chanFFT,
			Output:         rb,
		})
	}

	reporter := &overrunReporter{deviceIndex: cfg.Index, errFeed: errFeed}
	cz := channelizer.New(czDev, plan, specs, reporter)

	d := &Device{cfg: cfg, stage: stage, cz: cz, errFeed: errFeed, state: StateStopped}

	for _, ch := range cfg.Channels {
		if !ch.Enabled {
			continue
		}
		rb := rings[ch.Index]
		sampleRate := cz.OutputSampleRate(ch.Index)
		c, err := channel.New(cfg.Index, ch, sampleRate, rb, cz, metrics, errFeed)
		if err != nil {
			return nil, err
		}
		d.channels = append(d.channels, c)
	}

	return d, nil
}

// Start opens the Input Stage, starts every Channel, and begins the
// device's read-and-channelize loop on its own goroutine.
func (d *Device) Start(ctx context.Context) error {
	icfg := input.Config{
		SampleRateHz:      d.cfg.SampleRateHz,
		CenterFreqHz:      d.cfg.CenterFreqHz,
		GainDB:            d.cfg.Gain,
		FreqCorrectionPPM: d.cfg.FreqCorrectionPPM,
		Source:            d.cfg.Source,
		SpeedupFactor:     d.cfg.SpeedupFactor,
	}
	if err := d.stage.Open(ctx, icfg); err != nil {
		d.setState(StateFailed)
		return err
	}

	for _, c := range d.channels {
		if err := c.Start(ctx); err != nil {
			d.setState(StateFailed)
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.setState(StateRunning)
	d.wg.Add(1)
	go d.run(runCtx)
	return nil
}

func (d *Device) run(ctx context.Context) {
	defer d.wg.Done()
	buf := make([]float32, 2*2048) // oversized scratch; ReadFrame caps to actual fill

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := d.stage.ReadFrame(buf)
		if err != nil {
			if err == input.EndOfStream {
				d.setState(StateStopped)
				return
			}
			if d.errFeed != nil {
				if ae, ok := err.(*errs.Error); ok {
					d.errFeed.Report(ae)
				}
			}
			d.setState(StateFailed)
			return
		}

		d.cz.Process(frame.Samples, frame.Timestamp)
	}
}

func (d *Device) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// State returns the device's current lifecycle state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Stop tears the device down leaves-first (spec.md 5: "Metering Bus ->
// Output Sinks -> Demodulator -> Channelizer -> Input Stage"): channels
// (which own sinks and the demodulator) stop before the channelizer's
// input loop is cancelled and the Input Stage is closed.
func (d *Device) Stop() {
	for _, c := range d.channels {
		c.Stop()
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.stage.Close()
	d.setState(StateStopped)
}
