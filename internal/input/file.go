package input

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"time"

	"github.com/airbandcore/airbandcore/internal/errs"
)

// FileDriver replays a file of interleaved little-endian int16 IQ samples,
// pacing reads by SpeedupFactor (1.0 = real-time; spec.md 4.1). EOF
// produces the terminal EndOfStream error.
type FileDriver struct {
	f             *os.File
	sampleRateHz  float64
	speedup       float64
	lastRead      time.Time
	bytesPerFrame int // 2 scalars * 2 bytes/int16
}

// NewFileDriver builds an unopened file-replay driver.
func NewFileDriver() *FileDriver {
	return &FileDriver{bytesPerFrame: 4}
}

func (d *FileDriver) Open(_ context.Context, cfg Config) error {
	f, err := os.Open(cfg.Source)
	if err != nil {
		return errs.Wrap(errs.KindDeviceInit, "input.file", "open "+cfg.Source, err)
	}
	d.f = f
	d.sampleRateHz = cfg.SampleRateHz
	d.speedup = cfg.SpeedupFactor
	if d.speedup <= 0 {
		d.speedup = 1.0
	}
	d.lastRead = time.Time{}
	return nil
}

func (d *FileDriver) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// ReadInto reads up to len(dst)/2 complex samples as interleaved
// little-endian int16 pairs, normalizing to float32 in [-1, 1], pacing to
// respect SpeedupFactor relative to wall clock.
func (d *FileDriver) ReadInto(dst []float32) (int, error) {
	if d.f == nil {
		return 0, errs.New(errs.KindInternal, "input.file", "read before open")
	}

	wantComplex := len(dst) / 2
	raw := make([]byte, wantComplex*d.bytesPerFrame)
	n, err := io.ReadFull(d.f, raw)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if n == 0 {
			return 0, EndOfStream
		}
		// Partial last batch: still deliver it before the next read
		// reports EndOfStream.
	case err != nil:
		return 0, errs.Wrap(errs.KindInputTransient, "input.file", "read", err)
	}

	gotComplex := n / d.bytesPerFrame
	for i := 0; i < gotComplex; i++ {
		iRaw := int16(binary.LittleEndian.Uint16(raw[i*4:]))
		qRaw := int16(binary.LittleEndian.Uint16(raw[i*4+2:]))
		dst[i*2] = float32(iRaw) / math.MaxInt16
		dst[i*2+1] = float32(qRaw) / math.MaxInt16
	}

	d.pace(gotComplex)
	return gotComplex, nil
}

// pace sleeps just enough to keep the replay cadence at sampleRateHz /
// speedup, so a speedup of 1.0 behaves like a live capture.
func (d *FileDriver) pace(samples int) {
	if d.sampleRateHz <= 0 || samples == 0 {
		return
	}
	wantDur := time.Duration(float64(samples) / (d.sampleRateHz * d.speedup) * float64(time.Second))
	if d.lastRead.IsZero() {
		d.lastRead = time.Now()
		return
	}
	elapsed := time.Since(d.lastRead)
	if elapsed < wantDur {
		time.Sleep(wantDur - elapsed)
	}
	d.lastRead = time.Now()
}
