package input

import (
	"context"
	"testing"
	"time"

	"github.com/airbandcore/airbandcore/internal/errs"
)

type fakeDriver struct {
	frames  [][]float32
	i       int
	failN   int
	fail    error
	opened  bool
	closed  bool
}

func (f *fakeDriver) Open(_ context.Context, _ Config) error {
	f.opened = true
	return nil
}

func (f *fakeDriver) Close() error {
	f.closed = true
	return nil
}

func (f *fakeDriver) ReadInto(dst []float32) (int, error) {
	if f.failN > 0 {
		f.failN--
		return 0, f.fail
	}
	if f.i >= len(f.frames) {
		return 0, EndOfStream
	}
	src := f.frames[f.i]
	f.i++
	n := copy(dst, src)
	return n / 2, nil
}

func TestStageReadFrameDCBlocksAndPassesThrough(t *testing.T) {
	drv := &fakeDriver{frames: [][]float32{{1, 1, 1, 1, 1, 1}}}
	s := NewStage(drv)
	buf := make([]float32, 6)
	fr, err := s.ReadFrame(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fr.SampleCount != 3 {
		t.Fatalf("expected 3 samples, got %d", fr.SampleCount)
	}
}

func TestStageReadFrameRetriesTransientThenSucceeds(t *testing.T) {
	drv := &fakeDriver{
		frames: [][]float32{{0.5, 0.5}},
		failN:  2,
		fail:   errs.New(errs.KindInputTransient, "test", "stall"),
	}
	s := NewStage(drv)
	buf := make([]float32, 2)

	start := time.Now()
	fr, err := s.ReadFrame(buf)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fr.SampleCount != 1 {
		t.Fatalf("expected 1 sample, got %d", fr.SampleCount)
	}
	if elapsed < initialBackoff {
		t.Fatalf("expected at least one backoff sleep, elapsed=%v", elapsed)
	}
}

func TestStageReadFrameReturnsEndOfStream(t *testing.T) {
	drv := &fakeDriver{}
	s := NewStage(drv)
	buf := make([]float32, 2)
	_, err := s.ReadFrame(buf)
	if err != EndOfStream {
		t.Fatalf("expected EndOfStream, got %v", err)
	}
}

func TestStageReadFramePropagatesFatal(t *testing.T) {
	fatal := errs.New(errs.KindInputFatal, "test", "device gone")
	drv := &fakeDriver{failN: 1, fail: fatal}
	s := NewStage(drv)
	buf := make([]float32, 2)
	_, err := s.ReadFrame(buf)
	if err != fatal {
		t.Fatalf("expected fatal error to propagate, got %v", err)
	}
}

func TestSampleRingCapacityRoundsUpToPowerOfTwo(t *testing.T) {
	if got := SampleRingCapacity(1500); got != 4096 {
		t.Fatalf("expected 4096, got %d", got)
	}
	if got := SampleRingCapacity(0); got != 4096 {
		t.Fatalf("expected default 4096, got %d", got)
	}
}

type fakeRig struct {
	freq   float64
	closed bool
}

func (f *fakeRig) SetFreq(hz float64) error {
	f.freq = hz
	return nil
}

func (f *fakeRig) Close() error {
	f.closed = true
	return nil
}

func TestRigControllerInterfaceSatisfiedByFake(t *testing.T) {
	var rc RigController = &fakeRig{}
	if err := rc.SetFreq(118_300_000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
