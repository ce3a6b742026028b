// Package channel wires one Channel's Demodulator to its Output Fan-out
// sinks (spec.md 4.3, 4.4), running as the single cooperative task spec.md
// 5 assigns per channel.
package channel

import (
	"context"
	"sync"

	"github.com/airbandcore/airbandcore/internal/channelizer"
	"github.com/airbandcore/airbandcore/internal/config"
	"github.com/airbandcore/airbandcore/internal/demod"
	"github.com/airbandcore/airbandcore/internal/errfeed"
	"github.com/airbandcore/airbandcore/internal/metering"
	"github.com/airbandcore/airbandcore/internal/sink"
)

// Channel owns a Demodulator and every sink configured for it, draining
// complex baseband batches off its channelizer ring buffer until Stop is
// called.
type Channel struct {
	deviceIndex  int
	cfg          config.Channel
	sampleRateHz float64
	input        BasebandSource
	demod        *demod.Demodulator
	sinks        []sink.Sink

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// BasebandSource is the narrow read side of the channelizer's per-channel
// ring buffer, kept as an interface here so this package doesn't need to
// import channelizer's ring-of-Baseband generic instantiation type name
// directly in field position (it's just ring.Buffer[channelizer.Baseband]
// underneath).
type BasebandSource interface {
	Pop() (channelizer.Baseband, bool)
}

// New builds a Channel. sampleRateHz is the channelizer's decimated output
// rate for this channel (see channelizer.Channelizer.OutputSampleRate).
func New(
	deviceIndex int,
	cfg config.Channel,
	sampleRateHz float64,
	input BasebandSource,
	afcCtrl demod.AFCController,
	metrics *metering.Bus,
	errFeed *errfeed.Feed,
) (*Channel, error) {
	dm := demod.New(deviceIndex, cfg, sampleRateHz, afcCtrl, metrics)

	var sinks []sink.Sink
	for _, sc := range cfg.Outputs {
		if !sc.Enabled {
			continue
		}
		s, err := sink.New(cfg.Label, sc, cfg.Label, cfg.FreqHz, errFeed)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	return &Channel{
		deviceIndex:  deviceIndex,
		cfg:          cfg,
		sampleRateHz: sampleRateHz,
		input:        input,
		demod:        dm,
		sinks:        sinks,
	}, nil
}

// Start opens every sink and begins draining the input ring on its own
// goroutine.
func (c *Channel) Start(ctx context.Context) error {
	for _, s := range c.sinks {
		if err := s.Open(); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.run(runCtx)
	return nil
}

func (c *Channel) run(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		bb, ok := c.popInput(ctx)
		if !ok {
			return
		}

		audio, _ := c.demod.Process(bb.Samples, bb.Timestamp)
		c.fanOut(audio)
	}
}

// popInput blocks on the channelizer's ring buffer but wakes promptly when
// ctx is cancelled, since ring.Buffer.Pop itself has no context awareness.
func (c *Channel) popInput(ctx context.Context) (channelizer.Baseband, bool) {
	type result struct {
		bb channelizer.Baseband
		ok bool
	}
	done := make(chan result, 1)
	go func() {
		bb, ok := c.input.Pop()
		done <- result{bb, ok}
	}()

	select {
	case <-ctx.Done():
		return channelizer.Baseband{}, false
	case r := <-done:
		return r.bb, r.ok
	}
}

func (c *Channel) fanOut(audio demod.AudioFrame) {
	fr := sink.Frame{
		Samples:      audio.Samples,
		SampleRateHz: c.sampleRateHz,
		Timestamp:    audio.Timestamp,
		SquelchOpen:  audio.SquelchOpen,
		FrequencyHz:  c.cfg.FreqHz,
		Label:        c.cfg.Label,
	}
	for _, s := range c.sinks {
		s.Accept(fr)
	}
}

// Stop tears the channel down: stop draining, close every sink in order
// (spec.md 5: sinks tear down before the demodulator that feeds them, but
// within a single channel the sinks have no further producer once run()
// has returned).
func (c *Channel) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	for _, s := range c.sinks {
		s.Close()
	}
}
