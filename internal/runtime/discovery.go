package runtime

import (
	"context"

	"github.com/brutella/dnssd"
)

// ServiceType is the mDNS/DNS-SD service type this receiver advertises,
// adapted from the teacher's KISS-over-TCP announcement
// (src/dns_sd.go) to this module's metrics/errors control-plane surface.
const ServiceType = "_airbandcore._tcp"

// AdvertiseMetrics announces the metrics/errors HTTP endpoint on the local
// network via mDNS so a control plane doesn't need static configuration to
// find a running receiver (SPEC_FULL.md 6, "ambient discovery
// convenience"). Errors are logged and non-fatal: discovery is a
// convenience, never a startup requirement.
func (r *Runtime) AdvertiseMetrics(ctx context.Context, name string, port int) {
	if name == "" {
		name = "airbandcore"
	}

	cfg := dnssd.Config{
		Name: name,
		Type: ServiceType,
		Port: port,
	}

	sv, err := dnssd.NewService(cfg)
	if err != nil {
		r.Log.Error("dns-sd: failed to create service", "err", err)
		return
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		r.Log.Error("dns-sd: failed to create responder", "err", err)
		return
	}

	if _, err := rp.Add(sv); err != nil {
		r.Log.Error("dns-sd: failed to add service", "err", err)
		return
	}

	r.Log.Info("dns-sd: announcing metrics endpoint", "port", port, "name", name)

	go func() {
		if err := rp.Respond(ctx); err != nil && ctx.Err() == nil {
			r.Log.Error("dns-sd: responder error", "err", err)
		}
	}()
}
