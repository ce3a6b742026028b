package demod

import (
	"time"

	"github.com/airbandcore/airbandcore/internal/config"
	"github.com/airbandcore/airbandcore/internal/dsp"
)

// squelchState implements spec.md 4.3's Closed/Open state machine: a
// user-set or auto (noise + hysteresis) threshold pair, and a hang timer
// before closing back down.
type squelchState struct {
	cfg   config.Squelch
	noise *dsp.MinTracker
	open  bool
	closeArmedAt time.Time
}

func newSquelchState(cfg config.Squelch) *squelchState {
	return &squelchState{
		cfg:   cfg,
		noise: dsp.NewMinTracker(0.01),
	}
}

// thresholds returns the (open, close) dB thresholds for the current
// noise floor estimate, honoring an explicit override if configured: an
// absolute ThresholdDBFS wins, then SNRDB above the noise floor.
func (s *squelchState) thresholds(noiseDB float64) (openThr, closeThr float64) {
	if s.cfg.ThresholdDBFS != nil {
		t := *s.cfg.ThresholdDBFS
		return t, t - (defaultOpenHystDB - defaultCloseHystDB)
	}
	if s.cfg.SNRDB != nil {
		t := noiseDB + *s.cfg.SNRDB
		return t, t - (defaultOpenHystDB - defaultCloseHystDB)
	}
	return noiseDB + defaultOpenHystDB, noiseDB + defaultCloseHystDB
}

// step advances the state machine for one tick's signal level and returns
// whether the channel is (now) Open.
func (s *squelchState) step(signalDB, openThr, closeThr float64, ts time.Time) bool {
	hang := time.Duration(s.cfg.HangMillis) * time.Millisecond
	if hang <= 0 {
		hang = defaultHangMillis * time.Millisecond
	}

	if !s.open {
		if signalDB >= openThr {
			s.open = true
			s.closeArmedAt = time.Time{}
		}
		return s.open
	}

	// Open: watch for a sustained drop below closeThr for T_hang.
	if signalDB < closeThr {
		if s.closeArmedAt.IsZero() {
			s.closeArmedAt = ts
		} else if ts.Sub(s.closeArmedAt) >= hang {
			s.open = false
		}
	} else {
		s.closeArmedAt = time.Time{}
	}
	return s.open
}
