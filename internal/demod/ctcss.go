package demod

import (
	"time"

	"github.com/airbandcore/airbandcore/internal/dsp"
)

const ctcssMagnitudeThreshold = 0.02

// ctcssDetector runs a narrow Goertzel on the demodulated audio and
// latches the squelch-open signal only once the tone has been sustained
// for ctcssSustainFor, preventing false opens from co-channel traffic
// without the target tone (spec.md 4.3).
type ctcssDetector struct {
	tone          *dsp.Goertzel
	sustainedFrom time.Time
	count         int
}

func newCTCSSDetector(toneHz, sampleRateHz float64) *ctcssDetector {
	const blockSize = 256
	return &ctcssDetector{tone: dsp.NewGoertzel(toneHz, sampleRateHz, blockSize)}
}

func (c *ctcssDetector) feed(sample float64, ts time.Time) {
	mag, done := c.tone.Add(sample)
	if !done {
		return
	}
	if mag >= ctcssMagnitudeThreshold {
		if c.sustainedFrom.IsZero() {
			c.sustainedFrom = ts
		} else if ts.Sub(c.sustainedFrom) >= ctcssSustainFor {
			c.count++
		}
	} else {
		c.sustainedFrom = time.Time{}
	}
}

// latched reports whether the tone has been continuously present for at
// least ctcssSustainFor as of ts.
func (c *ctcssDetector) latched(ts time.Time) bool {
	return !c.sustainedFrom.IsZero() && ts.Sub(c.sustainedFrom) >= ctcssSustainFor
}
