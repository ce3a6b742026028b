package sink

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/airbandcore/airbandcore/internal/config"
)

const (
	httpAPIRetries    = 3
	httpAPIRetryBase  = 500 * time.Millisecond
)

// transmissionPayload is the JSON body posted for each frame received
// while squelch is open (spec.md 4.4 HTTP API "boondock" sink). Frames are
// not aggregated per transmission: one squelch-open event produces one
// post per frame, and no post marks the end of the event.
type transmissionPayload struct {
	Label        string  `json:"label"`
	FrequencyHz  float64 `json:"frequency_hz"`
	Timestamp    int64   `json:"timestamp_unix_ms"`
	AudioBase64  string  `json:"audio_base64,omitempty"`
}

// HTTPAPIWriter posts one JSON transmission record per squelch-open frame
// handed to it (frames with squelch closed are skipped), inlining base64
// audio when configured. Failures are retried a few times internally; the
// last error is then returned to Base, which counts it in its
// consecutive-failure counter.
type HTTPAPIWriter struct {
	cfg    config.Sink
	client *http.Client
}

// NewHTTPAPIWriter builds an HTTP API sink writer.
func NewHTTPAPIWriter(cfg config.Sink) *HTTPAPIWriter {
	return &HTTPAPIWriter{cfg: cfg, client: &http.Client{Timeout: 5 * time.Second}}
}

func (w *HTTPAPIWriter) Open() error  { return nil }
func (w *HTTPAPIWriter) Flush() error { return nil }
func (w *HTTPAPIWriter) Close() error { return nil }

func (w *HTTPAPIWriter) Write(fr Frame) error {
	if !fr.SquelchOpen {
		return nil
	}

	payload := transmissionPayload{
		Label:       fr.Label,
		FrequencyHz: fr.FrequencyHz,
		Timestamp:   fr.Timestamp.UnixMilli(),
	}
	if w.cfg.InlineB64 {
		payload.AudioBase64 = base64.StdEncoding.EncodeToString(pcm16Bytes(fr.Samples))
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var lastErr error
	backoff := httpAPIRetryBase
	for attempt := 0; attempt < httpAPIRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}
		req, err := http.NewRequest(http.MethodPost, w.cfg.URL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("http_api: unexpected status %s", resp.Status)
			continue
		}
		return nil
	}
	return lastErr
}
