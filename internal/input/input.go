// Package input implements the Input Stage (spec.md 4.1): it drives one
// of several driver kinds to produce normalized interleaved float32 IQ
// samples at a known rate, DC-blocks each channel, and returns them one
// Frame at a time to the owning Device's task, which hands each Frame
// directly to the channelizer. There is no ring buffer between this stage
// and the channelizer.
package input

import (
	"context"
	"time"

	"github.com/airbandcore/airbandcore/internal/dsp"
	"github.com/airbandcore/airbandcore/internal/errs"
)

// Frame is spec.md 3's "IQ Frame" entity: a contiguous batch of
// interleaved (I, Q, I, Q, ...) float32 samples produced once and
// consumed once by the channelizer.
type Frame struct {
	Samples     []float32
	SampleCount int
	Timestamp   time.Time
}

// Driver is the Input Stage's public contract (spec.md 4.1): open,
// non-blocking read, idempotent close.
type Driver interface {
	// Open configures sample rate, center frequency, gain, and correction.
	Open(ctx context.Context, cfg Config) error
	// ReadInto fills dst with up to len(dst)/2 complex samples (len(dst)
	// must be even: interleaved I/Q) and returns the number of complex
	// samples written. Non-blocking when possible.
	ReadInto(dst []float32) (samplesWritten int, err error)
	// Close releases driver state. Idempotent.
	Close() error
}

// Config configures one Input Stage driver instance.
type Config struct {
	SampleRateHz      float64
	CenterFreqHz      float64
	GainDB            float64
	FreqCorrectionPPM float64
	Source            string  // file path / device serial / network address
	SpeedupFactor     float64 // file replay only; 1.0 = real time
}

// EndOfStream is the terminal error file-replay drivers return at EOF; the
// owning Device transitions to Stopped, not Failed (spec.md 4.1).
var EndOfStream = errs.New(errs.KindInputFatal, "input", "end of stream")

// Stage wraps a Driver with the normalization spec.md 4.1 requires: DC
// blocking on I and Q independently, and transient-error retry with
// exponential backoff up to ~1s before declaring the device Failed.
type Stage struct {
	driver  Driver
	dcI     *dsp.DCBlocker
	dcQ     *dsp.DCBlocker
	backoff time.Duration
}

const (
	initialBackoff = 10 * time.Millisecond
	maxBackoff     = time.Second
	dcBlockerPole  = 0.999
)

// NewStage wraps driver with DC blocking and retry/backoff bookkeeping.
func NewStage(driver Driver) *Stage {
	return &Stage{
		driver: driver,
		dcI:    dsp.NewDCBlocker(dcBlockerPole),
		dcQ:    dsp.NewDCBlocker(dcBlockerPole),
	}
}

// Open delegates to the driver.
func (s *Stage) Open(ctx context.Context, cfg Config) error {
	return s.driver.Open(ctx, cfg)
}

// Close delegates to the driver.
func (s *Stage) Close() error {
	return s.driver.Close()
}

// ReadFrame reads one batch from the driver, DC-blocks it in place, and
// returns a Frame. Transient errors (returned by the driver wrapped as
// errs.KindInputTransient) are retried here with exponential backoff up to
// maxBackoff; a transient error that recurs after a maxBackoff sleep is
// returned as errs.KindInputFatal. Anything else propagates unchanged to
// the caller, which is expected to be spec.md 4.1's fatal/EndOfStream
// handling.
func (s *Stage) ReadFrame(buf []float32) (Frame, error) {
	for {
		n, err := s.driver.ReadInto(buf)
		if err == nil {
			s.backoff = 0
			s.dcBlockInPlace(buf[:n*2])
			return Frame{Samples: buf[:n*2], SampleCount: n, Timestamp: time.Now()}, nil
		}

		var ae *errs.Error
		if ok := errorsAsInputTransient(err, &ae); ok {
			if s.backoff >= maxBackoff {
				s.backoff = 0
				return Frame{}, errs.Wrap(errs.KindInputFatal, "input", "transient errors persisted past retry budget", err)
			}
			s.sleepBackoff()
			continue
		}
		return Frame{}, err
	}
}

func (s *Stage) dcBlockInPlace(iq []float32) {
	for i := 0; i+1 < len(iq); i += 2 {
		iq[i] = float32(s.dcI.Process(float64(iq[i])))
		iq[i+1] = float32(s.dcQ.Process(float64(iq[i+1])))
	}
}

func (s *Stage) sleepBackoff() {
	if s.backoff == 0 {
		s.backoff = initialBackoff
	} else {
		s.backoff *= 2
		if s.backoff > maxBackoff {
			s.backoff = maxBackoff
		}
	}
	time.Sleep(s.backoff)
}

func errorsAsInputTransient(err error, target **errs.Error) bool {
	e, ok := err.(*errs.Error)
	if !ok || e.Kind != errs.KindInputTransient {
		return false
	}
	*target = e
	return true
}
