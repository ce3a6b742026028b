package demod

import (
	"math"
	"testing"
	"time"

	"github.com/airbandcore/airbandcore/internal/config"
	"github.com/airbandcore/airbandcore/internal/metering"
)

const testSampleRate = 48000.0

type fakeAFC struct {
	lastDelta float64
	calls     int
}

func (f *fakeAFC) SetAFC(_ int, delta float64) {
	f.lastDelta = delta
	f.calls++
}

func strongTone(n int, freqHz, amplitude float64) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		phase := 2 * math.Pi * freqHz * float64(i) / testSampleRate
		out[i] = complex(amplitude*math.Cos(phase), amplitude*math.Sin(phase))
	}
	return out
}

func newTestChannel(mod config.Modulation) config.Channel {
	return config.Channel{
		Index:      3,
		Label:      "test",
		FreqHz:     123_450_000,
		Modulation: mod,
		HighpassHz: 300,
		LowpassHz:  3000,
		AmpFactor:  1,
		Enabled:    true,
	}
}

func TestAMDemodulatorProducesNonZeroAudioWhenSquelchOpens(t *testing.T) {
	ch := newTestChannel(config.ModAM)
	ch.Squelch.ThresholdDBFS = floatPtr(-60)
	metrics := metering.New()
	d := New(0, ch, testSampleRate, nil, metrics)

	var frame AudioFrame
	for i := 0; i < 20; i++ {
		baseband := strongTone(256, 1000, 0.8)
		frame, _ = d.Process(baseband, time.Now())
	}

	if !frame.SquelchOpen {
		t.Fatal("expected squelch to open under a strong signal")
	}
	nonZero := false
	for _, s := range frame.Samples {
		if s != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatal("expected non-zero audio once squelch is open")
	}
}

func TestSquelchMutesWhenClosed(t *testing.T) {
	ch := newTestChannel(config.ModAM)
	ch.Squelch.ThresholdDBFS = floatPtr(10) // unreachably high -> stays closed
	metrics := metering.New()
	d := New(0, ch, testSampleRate, nil, metrics)

	baseband := strongTone(256, 1000, 0.1)
	frame, snap := d.Process(baseband, time.Now())

	if frame.SquelchOpen {
		t.Fatal("expected squelch to stay closed")
	}
	for _, s := range frame.Samples {
		if s != 0 {
			t.Fatal("expected muted (all-zero) audio while closed")
		}
	}
	if snap.Status != metering.StatusNoSignal {
		t.Fatalf("expected no-signal status, got %v", snap.Status)
	}
}

func TestNFMDemodulatorTracksConstantToneWithoutNaN(t *testing.T) {
	ch := newTestChannel(config.ModNFM)
	ch.Squelch.ThresholdDBFS = floatPtr(-80)
	metrics := metering.New()
	d := New(0, ch, testSampleRate, nil, metrics)

	baseband := strongTone(512, 500, 0.9)
	frame, _ := d.Process(baseband, time.Now())

	for _, s := range frame.Samples {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			t.Fatalf("got NaN/Inf sample in NFM output: %v", s)
		}
	}
}

func TestSquelchHysteresisRequiresHangBeforeClosing(t *testing.T) {
	cfg := config.Squelch{ThresholdDBFS: floatPtr(-40), HangMillis: 150}
	s := newSquelchState(cfg)

	now := time.Now()
	if s.step(-10, -40, -43, now) != true {
		t.Fatal("expected squelch to open above threshold")
	}
	// Drop below close threshold but before hang elapses: should stay open.
	if !s.step(-50, -40, -43, now.Add(50*time.Millisecond)) {
		t.Fatal("expected squelch to remain open before hang elapses")
	}
	// After hang elapses: should close.
	if s.step(-50, -40, -43, now.Add(250*time.Millisecond)) {
		t.Fatal("expected squelch to close after hang elapses")
	}
}

func TestAFCEstimatorReportsAfterConfiguredSteps(t *testing.T) {
	ch := newTestChannel(config.ModNFM)
	ch.Squelch.ThresholdDBFS = floatPtr(-80)
	ch.AFCSteps = 2
	afc := &fakeAFC{}
	metrics := metering.New()
	d := New(0, ch, testSampleRate, afc, metrics)

	for i := 0; i < 3; i++ {
		baseband := strongTone(128, 500, 0.9)
		d.Process(baseband, time.Now())
	}

	if afc.calls == 0 {
		t.Fatal("expected AFC controller to be invoked after afc_steps ticks")
	}
}

func TestCTCSSSuppressesAudioUntilToneSustained(t *testing.T) {
	ch := newTestChannel(config.ModAM)
	ch.Squelch.ThresholdDBFS = floatPtr(-80)
	ch.CTCSSToneHz = 100.0
	metrics := metering.New()
	d := New(0, ch, testSampleRate, nil, metrics)

	baseband := strongTone(256, 1000, 0.8)
	frame, _ := d.Process(baseband, time.Now())

	if frame.SquelchOpen {
		t.Fatal("expected audio muted before CTCSS tone latches")
	}
}

func floatPtr(f float64) *float64 { return &f }
