package sink

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/airbandcore/airbandcore/internal/config"
)

// redisMessage is the payload published to radio:{label} (spec.md 4.4
// Redis sink: "JSON metadata + binary PCM in a separate field").
type redisMessage struct {
	Label       string  `json:"label"`
	FrequencyHz float64 `json:"frequency_hz"`
	Timestamp   int64   `json:"timestamp_unix_ms"`
	SquelchOpen bool    `json:"squelch_open"`
	PCMBase64   string  `json:"pcm_base64"`
}

// RedisWriter publishes each frame as JSON to a per-channel pub/sub
// channel, using a connection pool of 1 (spec.md 4.4).
type RedisWriter struct {
	cfg    config.Sink
	label  string
	client *redis.Client
}

// NewRedisWriter builds an unopened Redis PUB sink writer.
func NewRedisWriter(cfg config.Sink, label string) *RedisWriter {
	return &RedisWriter{cfg: cfg, label: label}
}

func (w *RedisWriter) Open() error {
	opts := &redis.Options{Addr: w.cfg.RedisAddr, DB: w.cfg.RedisDB, PoolSize: 1}
	w.client = redis.NewClient(opts)
	return w.client.Ping(context.Background()).Err()
}

func (w *RedisWriter) Close() error {
	if w.client == nil {
		return nil
	}
	return w.client.Close()
}

func (w *RedisWriter) Flush() error { return nil }

func (w *RedisWriter) Write(fr Frame) error {
	if w.client == nil {
		return nil
	}
	msg := redisMessage{
		Label:       w.label,
		FrequencyHz: fr.FrequencyHz,
		Timestamp:   fr.Timestamp.UnixMilli(),
		SquelchOpen: fr.SquelchOpen,
		PCMBase64:   base64.StdEncoding.EncodeToString(pcm16Bytes(fr.Samples)),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	channel := fmt.Sprintf("radio:%s", w.label)
	return w.client.Publish(context.Background(), channel, body).Err()
}
