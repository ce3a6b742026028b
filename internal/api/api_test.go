package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/airbandcore/airbandcore/internal/config"
	"github.com/airbandcore/airbandcore/internal/input"
	"github.com/airbandcore/airbandcore/internal/pipeline"
	"github.com/airbandcore/airbandcore/internal/runtime"
	"github.com/charmbracelet/log"
)

type fakeDriver struct{}

func (fakeDriver) Open(context.Context, input.Config) error { return nil }
func (fakeDriver) Close() error                              { return nil }
func (fakeDriver) ReadInto(dst []float32) (int, error) {
	time.Sleep(time.Millisecond)
	return len(dst) / 2, nil
}

func testConfig() config.Config {
	return config.Config{
		Devices: []config.Device{
			{
				Index: 0, Kind: config.DeviceFile, SampleRateHz: 1_000_000,
				CenterFreqHz: 100_000_000, FFTSize: 256, ChannelFFTSize: 64,
				Enabled: true,
			},
		},
	}
}

func newTestServer(t *testing.T) (*Server, *pipeline.Capture) {
	t.Helper()
	rt := runtime.New(log.New(io.Discard))
	cap := pipeline.New(rt, func(config.Device) (input.Driver, error) { return fakeDriver{}, nil })
	cfg := testConfig()
	if _, err := cap.Start(context.Background(), cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(cap.Stop)
	return NewServer(cap, cfg, log.New(io.Discard)), cap
}

func TestHandleStatusReportsRunningDevice(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var out []DeviceStatus
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].Enabled != 1 {
		t.Fatalf("unexpected status payload: %+v", out)
	}
}

func TestHandleErrorsDeleteClearsFeed(t *testing.T) {
	s, cap := newTestServer(t)
	_ = cap

	req := httptest.NewRequest(http.MethodDelete, "/api/errors", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestHandleConfigPostRejectsInvalidYAML(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader("not: valid: yaml: ::"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleControlStopThenStart(t *testing.T) {
	s, cap := newTestServer(t)

	stopReq := httptest.NewRequest(http.MethodPost, "/api/control", strings.NewReader(`{"command":"stop"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, stopReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status %d", rec.Code)
	}
	if _, ok := cap.DeviceState(0); ok {
		t.Fatal("expected device removed after stop")
	}

	startReq := httptest.NewRequest(http.MethodPost, "/api/control", strings.NewReader(`{"command":"start"}`))
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, startReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("start status %d", rec.Code)
	}
}
