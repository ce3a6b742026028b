package config

import "reflect"

// Diff describes what changed between two validated Configs, used by the
// pipeline to stop only affected devices/channels on live-reconfiguration
// (spec.md 6: "the core performs a diff on restart or on live-
// reconfiguration command, stopping only affected devices/channels").
type Diff struct {
	AddedDevices    []int
	RemovedDevices  []int
	ChangedDevices  []int
	UnchangedDevices []int
}

// DiffDevices compares two configs by device index and reports which
// devices were added, removed, changed (any field differs), or left
// completely unchanged. Two configs that are structurally identical
// produce a Diff with only UnchangedDevices populated -- the idempotence
// property spec.md 8 requires ("applying the same config twice yields
// identical device/channel/sink topology").
func DiffDevices(oldCfg, newCfg *Config) Diff {
	oldByIdx := indexDevices(oldCfg)
	newByIdx := indexDevices(newCfg)

	var d Diff
	for idx, nd := range newByIdx {
		od, existed := oldByIdx[idx]
		switch {
		case !existed:
			d.AddedDevices = append(d.AddedDevices, idx)
		case !devicesEqual(od, nd):
			d.ChangedDevices = append(d.ChangedDevices, idx)
		default:
			d.UnchangedDevices = append(d.UnchangedDevices, idx)
		}
	}
	for idx := range oldByIdx {
		if _, stillPresent := newByIdx[idx]; !stillPresent {
			d.RemovedDevices = append(d.RemovedDevices, idx)
		}
	}
	return d
}

func indexDevices(cfg *Config) map[int]*Device {
	m := make(map[int]*Device, len(cfg.Devices))
	for i := range cfg.Devices {
		m[cfg.Devices[i].Index] = &cfg.Devices[i]
	}
	return m
}

func devicesEqual(a, b *Device) bool {
	if a.Kind != b.Kind || a.SampleRateHz != b.SampleRateHz ||
		a.CenterFreqHz != b.CenterFreqHz || a.Gain != b.Gain ||
		a.FreqCorrectionPPM != b.FreqCorrectionPPM || a.Enabled != b.Enabled ||
		a.Source != b.Source || a.FFTSize != b.FFTSize ||
		a.ChannelFFTSize != b.ChannelFFTSize || a.SpeedupFactor != b.SpeedupFactor ||
		len(a.Channels) != len(b.Channels) {
		return false
	}
	for i := range a.Channels {
		if !channelsEqual(&a.Channels[i], &b.Channels[i]) {
			return false
		}
	}
	return true
}

func channelsEqual(a, b *Channel) bool {
	return reflect.DeepEqual(*a, *b)
}
