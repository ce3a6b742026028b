package config

import (
	"fmt"

	"github.com/airbandcore/airbandcore/internal/errs"
)

// Validate checks the whole document against spec.md 3's invariants and
// resolves derived values (default UDP ports, recording directories) once,
// up front -- never recomputed in a hot path (spec.md 9).
//
// A channel outside its device's band, or a device over the channel
// ceiling, does not abort the whole document: the offending entity is
// disabled and a Config error is returned naming it, while the rest of the
// config is still usable (spec.md 3, 8: "other channels still start").
func Validate(cfg *Config) ([]*errs.Error, error) {
	var problems []*errs.Error

	ceiling := cfg.MaxChannelsPerDevice
	if ceiling <= 0 {
		ceiling = MaxChannelsPerDevice
	}

	seenDeviceIdx := map[int]bool{}

	for di := range cfg.Devices {
		dev := &cfg.Devices[di]

		if seenDeviceIdx[dev.Index] {
			return nil, errs.New(errs.KindConfig, "config",
				fmt.Sprintf("duplicate device index %d", dev.Index))
		}
		seenDeviceIdx[dev.Index] = true

		enabledCount := 0
		offending := ""
		for ci := range dev.Channels {
			if dev.Channels[ci].Enabled {
				enabledCount++
				if enabledCount == ceiling+1 {
					offending = fmt.Sprintf("channel %d (%s)", dev.Channels[ci].Index, dev.Channels[ci].Label)
				}
			}
		}
		if enabledCount > ceiling {
			problems = append(problems, errs.New(errs.KindConfig, "config",
				fmt.Sprintf("device %d: %s: %d enabled channels exceeds ceiling of %d",
					dev.Index, offending, enabledCount, ceiling)))
			// Atomic failure for the whole device's channel enable, per
			// spec.md 3: "exceeding it fails channel enable atomically".
			for ci := range dev.Channels {
				dev.Channels[ci].Enabled = false
			}
			continue
		}

		half := dev.SampleRateHz / 2
		seenChanIdx := map[int]bool{}

		for ci := range dev.Channels {
			ch := &dev.Channels[ci]

			if seenChanIdx[ch.Index] {
				problems = append(problems, errs.New(errs.KindConfig, "config",
					fmt.Sprintf("device %d: duplicate channel_index %d", dev.Index, ch.Index)))
				ch.Enabled = false
				continue
			}
			seenChanIdx[ch.Index] = true

			lo, hi := dev.CenterFreqHz-half, dev.CenterFreqHz+half
			if ch.FreqHz < lo || ch.FreqHz > hi {
				problems = append(problems, errs.New(errs.KindConfig, "config",
					fmt.Sprintf("device %d channel %d (%s): frequency %.0fHz outside band [%.0f, %.0f]",
						dev.Index, ch.Index, ch.Label, ch.FreqHz, lo, hi)))
				ch.Enabled = false
				continue
			}

			resolveChannelDefaults(cfg.GlobalRecordingDirectory, dev, ch)
		}
	}

	return problems, nil
}

// resolveChannelDefaults fills in the default UDP port (6001 +
// channel_index, spec.md 3) for any UDP sink that didn't set one
// explicitly, and the default recording directory for file sinks
// (spec.md 4.4: "global_recording_directory + '/' + channel_label").
func resolveChannelDefaults(globalRecordingDir string, dev *Device, ch *Channel) {
	for si := range ch.Outputs {
		sink := &ch.Outputs[si]
		switch sink.Type {
		case SinkUDP:
			if sink.DestPort == 0 {
				sink.resolvedUDPPort = BaseUDPPort + ch.Index
			} else {
				sink.resolvedUDPPort = sink.DestPort
			}
			if sink.UDPChunking == nil {
				on := true
				sink.UDPChunking = &on
			}
		case SinkFile:
			if sink.Directory == "" {
				sink.Directory = globalRecordingDir + "/" + ch.Label
			}
		}
	}
	_ = dev
}

// ResolvedUDPPort returns the port computed by Validate for a UDP sink.
func (s *Sink) ResolvedUDPPort() int {
	if s.resolvedUDPPort != 0 {
		return s.resolvedUDPPort
	}
	return s.DestPort
}
