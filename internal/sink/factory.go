package sink

import (
	"fmt"

	"github.com/airbandcore/airbandcore/internal/config"
	"github.com/airbandcore/airbandcore/internal/errfeed"
)

// New builds the Sink variant cfg selects, wired to component for error
// feed attribution (spec.md 4.4).
func New(component string, cfg config.Sink, label string, freqHz float64, errFeed *errfeed.Feed) (Sink, error) {
	var w Writer
	switch cfg.Type {
	case config.SinkFile:
		w = NewFileWriter(cfg, label, freqHz)
	case config.SinkUDP:
		w = NewUDPWriter(cfg)
	case config.SinkIcecast:
		w = NewIcecastWriter(cfg)
	case config.SinkHTTPAPI:
		w = NewHTTPAPIWriter(cfg)
	case config.SinkRedis:
		w = NewRedisWriter(cfg, label)
	default:
		return nil, fmt.Errorf("sink: unknown type %q", cfg.Type)
	}
	return NewBase(component, w, defaultQueueCapacity, errFeed), nil
}
