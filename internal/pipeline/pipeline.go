// Package pipeline implements the top-level Capture control surface
// (spec.md 6): start/stop, diff-based live reconfiguration, and teardown
// ordering across the whole Device fleet.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/airbandcore/airbandcore/internal/config"
	"github.com/airbandcore/airbandcore/internal/device"
	"github.com/airbandcore/airbandcore/internal/errfeed"
	"github.com/airbandcore/airbandcore/internal/errs"
	"github.com/airbandcore/airbandcore/internal/input"
	"github.com/airbandcore/airbandcore/internal/metering"
	"github.com/airbandcore/airbandcore/internal/runtime"
)

// DriverFactory builds the Input Stage driver for one device's declarative
// config. Hardware kinds (usb-sdr, generic) need vendor-specific
// parameters the declarative Config doesn't carry (spec.md 9, Open
// Questions) -- callers targeting real hardware supply their own factory;
// DefaultDriverFactory only resolves the two kinds fully describable from
// config alone.
type DriverFactory func(cfg config.Device) (input.Driver, error)

// DefaultDriverFactory handles file replay and soundcard-iq devices.
func DefaultDriverFactory(cfg config.Device) (input.Driver, error) {
	switch cfg.Kind {
	case config.DeviceFile:
		return input.NewFileDriver(), nil
	case config.DeviceSoundcard:
		return input.NewSoundcardDriver(), nil
	default:
		return nil, fmt.Errorf("pipeline: device kind %q requires a custom DriverFactory", cfg.Kind)
	}
}

// Capture owns the whole running Device fleet and the shared runtime
// (metrics bus, error feed, FFT plan cache) they publish into.
type Capture struct {
	rt            *runtime.Runtime
	driverFactory DriverFactory

	mu      sync.Mutex
	cfg     config.Config
	devices map[int]*device.Device
	ctx     context.Context
}

// New builds an idle Capture. rt supplies the shared Runtime (logger,
// metrics, error feed, FFT plan cache); driverFactory resolves each
// device's Input Stage driver.
func New(rt *runtime.Runtime, driverFactory DriverFactory) *Capture {
	if driverFactory == nil {
		driverFactory = DefaultDriverFactory
	}
	return &Capture{
		rt:            rt,
		driverFactory: driverFactory,
		devices:       make(map[int]*device.Device),
	}
}

// Start validates cfg, builds a Device (Input Stage + Channelizer +
// Channels) for every enabled device, and starts them all. Validation
// problems on individual devices/channels are returned but do not prevent
// the rest of the config from starting (spec.md 3, 8).
func (c *Capture) Start(ctx context.Context, cfg config.Config) ([]*errs.Error, error) {
	problems, err := config.Validate(&cfg)
	if err != nil {
		return problems, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = ctx
	c.cfg = cfg

	for _, dc := range cfg.Devices {
		if !dc.Enabled {
			continue
		}
		if err := c.startDeviceLocked(ctx, dc); err != nil {
			problems = append(problems, errs.Wrap(errs.KindDeviceInit, "pipeline", fmt.Sprintf("device %d", dc.Index), err))
		}
	}
	return problems, nil
}

func (c *Capture) startDeviceLocked(ctx context.Context, dc config.Device) error {
	driver, err := c.driverFactory(dc)
	if err != nil {
		return err
	}
	d, err := device.New(dc, driver, c.rt.Plans(), c.rt.Metrics, c.rt.Errors)
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		return err
	}
	c.devices[dc.Index] = d
	return nil
}

// Reconfigure diffs newCfg against the currently running config and stops
// only removed/changed devices, starts added/changed ones, and leaves
// unchanged devices running untouched (spec.md 6, 8: idempotent
// reconfiguration).
func (c *Capture) Reconfigure(ctx context.Context, newCfg config.Config) ([]*errs.Error, error) {
	problems, err := config.Validate(&newCfg)
	if err != nil {
		return problems, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	diff := config.DiffDevices(&c.cfg, &newCfg)
	byIdx := make(map[int]config.Device, len(newCfg.Devices))
	for _, dc := range newCfg.Devices {
		byIdx[dc.Index] = dc
	}

	for _, idx := range append(append([]int{}, diff.RemovedDevices...), diff.ChangedDevices...) {
		if d, ok := c.devices[idx]; ok {
			d.Stop()
			delete(c.devices, idx)
			for _, od := range c.cfg.Devices {
				if od.Index != idx {
					continue
				}
				for _, ch := range od.Channels {
					c.rt.Metrics.Remove(idx, ch.Index)
				}
			}
		}
	}

	for _, idx := range append(append([]int{}, diff.AddedDevices...), diff.ChangedDevices...) {
		dc, ok := byIdx[idx]
		if !ok || !dc.Enabled {
			continue
		}
		if err := c.startDeviceLocked(ctx, dc); err != nil {
			problems = append(problems, errs.Wrap(errs.KindDeviceInit, "pipeline", fmt.Sprintf("device %d", idx), err))
		}
	}

	c.cfg = newCfg
	return problems, nil
}

// Stop tears down every running device, leaves (sinks) first (spec.md 5).
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for idx, d := range c.devices {
		d.Stop()
		delete(c.devices, idx)
	}
}

// Status returns the flat metrics list the control plane polls (spec.md
// 4.5, 6).
func (c *Capture) Status() []metering.Snapshot {
	return c.rt.Metrics.List()
}

// Errors returns the recent error feed (spec.md 6: "Errors (produced)").
func (c *Capture) Errors() []errfeed.Entry {
	return c.rt.Errors.List()
}

// ClearErrors empties the error feed (spec.md 6: "DELETE clears it").
func (c *Capture) ClearErrors() {
	c.rt.Errors.Clear()
}

// DeviceState reports one device's lifecycle state, if it is currently
// known to the pipeline.
func (c *Capture) DeviceState(deviceIndex int) (device.State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.devices[deviceIndex]
	if !ok {
		return "", false
	}
	return d.State(), true
}
