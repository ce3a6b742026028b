// Package demod implements the per-channel Demodulator (spec.md 4.3): AM
// and NFM demodulation, AFC, notch filtering, squelch, and CTCSS, each
// channel running as its own cooperative task consuming complex baseband
// batches off the channelizer's per-channel ring buffer.
package demod

import (
	"math"
	"time"

	"github.com/airbandcore/airbandcore/internal/config"
	"github.com/airbandcore/airbandcore/internal/dsp"
	"github.com/airbandcore/airbandcore/internal/metering"
)

// AudioFrame is one batch of demodulated audio handed to the Output
// Fan-out, muted (all zeros) while squelch is Closed but still emitted so
// sinks stay in sync (spec.md 4.3).
type AudioFrame struct {
	Samples     []float32
	Timestamp   time.Time
	SquelchOpen bool
}

// AFCController lets the Demodulator push a bounded bin-offset correction
// back to the owning channelizer for the next tick (spec.md 4.3).
type AFCController interface {
	SetAFC(channelIndex int, deltaBins float64)
}

const (
	quarantineDuration = 200 * time.Millisecond
	ctcssSustainFor    = 250 * time.Millisecond
	defaultHangMillis  = 150
	defaultOpenHystDB  = 6
	defaultCloseHystDB = 3
)

// Demodulator runs one channel's signal chain: envelope/discriminator,
// de-emphasis or DC removal, highpass/lowpass, notch, squelch, CTCSS, and
// metrics publication.
type Demodulator struct {
	cfg          config.Channel
	deviceIndex  int
	sampleRateHz float64

	highpass *dsp.Biquad
	lowpass  *dsp.Biquad
	notch    *dsp.Biquad

	// AM path
	amDC *dsp.LeakyIntegrator

	// NFM path
	lastI, lastQ float64
	deemph       *dsp.LeakyIntegrator

	squelch *squelchState
	ctcss   *ctcssDetector
	afc     *afcEstimator

	afcCtrl   AFCController
	metrics   *metering.Bus
	quarantinedUntil time.Time
	tickCount int
}

// New builds a Demodulator for ch, whose baseband stream arrives at
// sampleRateHz (the channelizer's decimated output rate for this channel).
func New(deviceIndex int, ch config.Channel, sampleRateHz float64, afcCtrl AFCController, metrics *metering.Bus) *Demodulator {
	hp := ch.HighpassHz
	if hp <= 0 {
		hp = 300
	}
	lp := ch.LowpassHz
	if lp <= 0 {
		lp = 3000
	}

	d := &Demodulator{
		cfg:          ch,
		deviceIndex:  deviceIndex,
		sampleRateHz: sampleRateHz,
		highpass:     dsp.NewHighpass(hp, sampleRateHz),
		lowpass:      dsp.NewLowpass(lp, sampleRateHz),
		amDC:         dsp.NewLeakyIntegrator(0.5, sampleRateHz),
		deemph:       dsp.NewLeakyIntegratorPole(deemphPole(sampleRateHz)),
		squelch:      newSquelchState(ch.Squelch),
		afcCtrl:      afcCtrl,
		metrics:      metrics,
	}
	if ch.NotchHz > 0 {
		q := ch.NotchQ
		if q <= 0 {
			q = 10
		}
		d.notch = dsp.NewNotch(ch.NotchHz, sampleRateHz, q)
	}
	if ch.CTCSSToneHz > 0 {
		d.ctcss = newCTCSSDetector(ch.CTCSSToneHz, sampleRateHz)
	}
	if ch.AFCSteps > 0 {
		d.afc = newAFCEstimator(ch.AFCSteps)
	}
	return d
}

const defaultDeemphTauUs = 50.0

func deemphPole(sampleRateHz float64) float64 {
	tau := defaultDeemphTauUs / 1e6
	return math.Exp(-1 / (tau * sampleRateHz))
}

// Process demodulates one complex-baseband batch into one audio frame and
// the channel's refreshed signal metrics snapshot (spec.md 4.5: "publishes
// one SignalMetrics record per channel per tick").
func (d *Demodulator) Process(baseband []complex128, ts time.Time) (AudioFrame, metering.Snapshot) {
	d.tickCount++
	audio := make([]float32, len(baseband))

	quarantined := !d.quarantinedUntil.IsZero() && ts.Before(d.quarantinedUntil)

	ampFactor := d.cfg.AmpFactor
	if ampFactor == 0 {
		ampFactor = 1
	}

	var phaseSum float64
	for i, s := range baseband {
		var sample float64
		switch d.cfg.Modulation {
		case config.ModNFM:
			sample, phaseSum = d.demodNFM(s, phaseSum)
		default:
			sample = d.demodAM(s)
		}

		sample = d.highpass.Process(sample)
		bad := dsp.IsBad(sample)
		sample = d.lowpass.Process(sample)
		bad = bad || dsp.IsBad(sample)
		if d.notch != nil {
			sample = d.notch.Process(sample)
			bad = bad || dsp.IsBad(sample)
		}
		sample *= ampFactor

		if bad || dsp.IsBad(sample) {
			d.quarantine(ts)
			sample = 0
			quarantined = true
		}
		audio[i] = float32(sample)
	}

	if d.afc != nil && d.afcCtrl != nil && len(baseband) > 0 {
		if delta, ready := d.afc.observe(phaseSum / float64(len(baseband))); ready {
			d.afcCtrl.SetAFC(d.cfg.Index, delta)
		}
	}

	signalPeak := rmsMagnitude(baseband)
	signalDB := linearToDB(signalPeak)
	noiseDB := linearToDB(d.squelch.noise.Update(signalPeak))
	openThr, closeThr := d.squelch.thresholds(noiseDB)
	open := d.squelch.step(signalDB, openThr, closeThr, ts)

	ctcssOK := true
	ctcssCount := 0
	if d.ctcss != nil {
		for _, s := range audio {
			d.ctcss.feed(float64(s), ts)
		}
		ctcssOK = d.ctcss.latched(ts)
		ctcssCount = d.ctcss.count
	}

	emit := open && ctcssOK && !quarantined
	if !emit {
		for i := range audio {
			audio[i] = 0
		}
	}

	snr := clamp(signalDB-noiseDB, 0, 50)

	snap := metering.Snapshot{
		DeviceIndex:    d.deviceIndex,
		ChannelIndex:   d.cfg.Index,
		Label:          d.cfg.Label,
		FrequencyMHz:   d.cfg.FreqHz / 1e6,
		SignalLevelDB:  signalDB,
		NoiseLevelDB:   noiseDB,
		SquelchLevelDB: openThr,
		SNRDB:          snr,
		CTCSSCount:     ctcssCount,
		HasSignal:      emit,
		Status:         metering.StatusNoSignal,
	}
	if emit {
		snap.Status = metering.StatusSignal
	}
	if d.metrics != nil {
		d.metrics.Publish(d.deviceIndex, d.cfg.Index, snap)
	}

	return AudioFrame{Samples: audio, Timestamp: ts, SquelchOpen: emit}, snap
}

// quarantine resets filter state and mutes output for quarantineDuration
// after a NaN/Inf is observed (spec.md 7: "NaN/Inf containment").
func (d *Demodulator) quarantine(ts time.Time) {
	d.highpass.Reset()
	d.lowpass.Reset()
	if d.notch != nil {
		d.notch.Reset()
	}
	d.amDC.Reset()
	d.deemph.Reset()
	d.lastI, d.lastQ = 0, 0
	d.quarantinedUntil = ts.Add(quarantineDuration)
}

func (d *Demodulator) demodAM(s complex128) float64 {
	env := cmplxAbs(s)
	dc := d.amDC.Update(env)
	return env - dc
}

func (d *Demodulator) demodNFM(s complex128, phaseSum float64) (float64, float64) {
	i, q := real(s), imag(s)
	dot := i*d.lastI + q*d.lastQ
	cross := q*d.lastI - i*d.lastQ
	d.lastI, d.lastQ = i, q

	phase := dsp.FastAtan2(cross, dot)
	audio := d.deemph.Update(phase)
	return audio, phaseSum + phase
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func rmsMagnitude(s []complex128) float64 {
	if len(s) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range s {
		m := cmplxAbs(v)
		sumSq += m * m
	}
	return math.Sqrt(sumSq / float64(len(s)))
}

func linearToDB(x float64) float64 {
	if x <= 1e-12 {
		x = 1e-12
	}
	return 20 * math.Log10(x)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
