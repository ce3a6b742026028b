package sink

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	mp3 "github.com/braheezy/shine-mp3/pkg/mp3"

	"github.com/airbandcore/airbandcore/internal/config"
)

// IcecastWriter streams MP3 to an Icecast mountpoint using the HTTP
// source-client PUT protocol (spec.md 4.4). Reconnects with exponential
// backoff capped at 30s; Base's own retry loop drives the backoff between
// Write calls, so IcecastWriter only needs to (re)establish the body pipe
// lazily.
type IcecastWriter struct {
	cfg    config.Sink
	client *http.Client

	pw      *io.PipeWriter
	done    chan error
	sampleR float64
}

// NewIcecastWriter builds an unopened Icecast source writer.
func NewIcecastWriter(cfg config.Sink) *IcecastWriter {
	return &IcecastWriter{cfg: cfg, client: &http.Client{Timeout: 0}, sampleR: 48000}
}

func (w *IcecastWriter) Open() error {
	return w.connect()
}

func (w *IcecastWriter) connect() error {
	pr, pw := io.Pipe()
	w.pw = pw

	url := fmt.Sprintf("http://%s:%d%s", w.cfg.Server, w.cfg.Port, w.cfg.Mountpoint)
	req, err := http.NewRequest(http.MethodPut, url, pr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "audio/mpeg")
	req.Header.Set("Ice-Name", w.cfg.StreamName)
	req.Header.Set("Ice-Public", "0")
	req.SetBasicAuth(w.cfg.Username, w.cfg.Password)

	done := make(chan error, 1)
	w.done = done
	go func() {
		resp, err := w.client.Do(req)
		if err != nil {
			done <- err
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			done <- fmt.Errorf("icecast: unexpected status %s", resp.Status)
			return
		}
		done <- nil
	}()
	return nil
}

func (w *IcecastWriter) Write(fr Frame) error {
	if fr.SampleRateHz > 0 {
		w.sampleR = fr.SampleRateHz
	}
	select {
	case err := <-w.done:
		// Connection ended (error or server close); reconnect for the
		// next frame rather than failing this one twice.
		w.pw.Close()
		if rerr := w.connect(); rerr != nil {
			return rerr
		}
		if err != nil {
			return err
		}
	default:
	}

	buf := &bytes.Buffer{}
	s16 := make([]int16, len(fr.Samples)*2)
	for i, s := range pcm16(fr.Samples) {
		s16[i*2] = s
		s16[i*2+1] = s
	}
	enc := mp3.NewEncoder(int(w.sampleR), 2)
	if err := enc.Write(buf, s16); err != nil {
		return err
	}

	_, err := w.pw.Write(buf.Bytes())
	return err
}

func (w *IcecastWriter) Flush() error { return nil }

func (w *IcecastWriter) Close() error {
	if w.pw != nil {
		return w.pw.Close()
	}
	return nil
}
