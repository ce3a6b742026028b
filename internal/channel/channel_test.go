package channel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/airbandcore/airbandcore/internal/channelizer"
	"github.com/airbandcore/airbandcore/internal/config"
)

type fakeSource struct {
	batches []channelizer.Baseband
	idx     atomic.Int64
}

func (s *fakeSource) Pop() (channelizer.Baseband, bool) {
	i := s.idx.Add(1) - 1
	if int(i) >= len(s.batches) {
		time.Sleep(5 * time.Millisecond)
		return channelizer.Baseband{}, false
	}
	return s.batches[i], true
}

type noopAFC struct{}

func (noopAFC) SetAFC(int, float64) {}

func testChannelConfig() config.Channel {
	return config.Channel{
		Index:       0,
		Label:       "test",
		FreqHz:      118_500_000,
		Modulation:  config.ModAM,
		BandwidthHz: 12500,
		Enabled:     true,
	}
}

func TestChannelStartStopTearsDownCleanly(t *testing.T) {
	src := &fakeSource{batches: []channelizer.Baseband{
		{Samples: make([]complex128, 16), Timestamp: time.Now()},
	}}

	ch, err := New(0, testChannelConfig(), 8000, src, noopAFC{}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ch.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	ch.Stop()
}

func TestChannelWithNoSinksDoesNotPanic(t *testing.T) {
	src := &fakeSource{}
	cfg := testChannelConfig()
	cfg.Outputs = nil

	ch, err := New(1, cfg, 8000, src, noopAFC{}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(ch.sinks) != 0 {
		t.Fatalf("expected no sinks, got %d", len(ch.sinks))
	}
	if err := ch.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ch.Stop()
}
