// Command airbandcore runs the multi-channel SDR receiver core: input
// stage, channelizer, demodulator, and output fan-out for every device in
// the config, plus the HTTP control-plane surface from spec.md §6.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airbandcore/airbandcore/internal/api"
	"github.com/airbandcore/airbandcore/internal/config"
	"github.com/airbandcore/airbandcore/internal/logging"
	"github.com/airbandcore/airbandcore/internal/pipeline"
	"github.com/airbandcore/airbandcore/internal/runtime"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = pflag.String("config", "", "path to the device/channel/sink config YAML")
		logLevel   = pflag.String("log-level", "info", "log level: debug, info, warn, error")
		listen     = pflag.String("listen", ":8080", "address for the HTTP control-plane API")
		advertise  = pflag.Bool("mdns", true, "advertise the metrics endpoint via mDNS")
	)
	pflag.Parse()

	logger := logging.New(*logLevel)

	if *configPath == "" {
		logger.Error("--config is required")
		return 3
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		return 3
	}

	rt := runtime.New(logger)
	capture := pipeline.New(rt, pipeline.DefaultDriverFactory)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	problems, err := capture.Start(ctx, cfg)
	for _, p := range problems {
		logger.Warn("config problem", "err", p)
	}
	if err != nil {
		logger.Error("failed to start capture", "err", err)
		return 2
	}

	if *advertise {
		port := listenPort(*listen)
		rt.AdvertiseMetrics(ctx, "airbandcore", port)
	}

	srv := api.NewServer(capture, cfg, logger)
	httpSrv := &http.Server{Addr: *listen, Handler: srv.Handler()}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api: listening", "addr", *listen)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("api server failed", "err", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	capture.Stop()
	return 0
}

func loadConfig(path string) (config.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return config.Config{}, err
	}
	defer f.Close()

	var cfg config.Config
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// listenPort extracts the numeric port from a ":8080" or "host:8080"
// style listen address for mDNS advertisement.
func listenPort(addr string) int {
	port := 0
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			fmt.Sscanf(addr[i+1:], "%d", &port)
			break
		}
	}
	return port
}
