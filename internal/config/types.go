// Package config holds the declarative device/channel/sink configuration
// the control plane edits and posts (spec.md 6), plus the validation and
// diff logic that lets the core start, stop, and live-reconfigure without
// recomputing derived values (like default UDP ports) in hot paths
// (spec.md 9, Open Questions).
package config

// MaxChannelsPerDevice is the hard ceiling from spec.md 3: "At most 8
// active channels per device".
const MaxChannelsPerDevice = 8

// BaseUDPPort is the base used by the default-port formula
// 6001 + channel_index (spec.md 3, 9).
const BaseUDPPort = 6001

// DeviceKind selects the Input Stage driver (spec.md 4.1, SPEC_FULL 6).
type DeviceKind string

const (
	DeviceUSBSDR     DeviceKind = "usb-sdr"
	DeviceFile       DeviceKind = "file"
	DeviceSoundcard  DeviceKind = "soundcard-iq"
	DeviceGeneric    DeviceKind = "generic"
)

// Modulation selects the per-channel demodulator (spec.md 3).
type Modulation string

const (
	ModAM  Modulation = "AM"
	ModNFM Modulation = "NFM"
)

// SinkKind selects the output sink variant (spec.md 3, 4.4).
type SinkKind string

const (
	SinkFile    SinkKind = "file"
	SinkUDP     SinkKind = "udp_stream"
	SinkIcecast SinkKind = "icecast"
	SinkHTTPAPI SinkKind = "http_api"
	SinkRedis   SinkKind = "redis"
)

// Squelch holds the channel's squelch configuration (spec.md 3, 4.3). Zero
// value for ThresholdDBFS/SNRDB means "auto" (noise + hysteresis).
type Squelch struct {
	ThresholdDBFS *float64 `yaml:"threshold_dbfs,omitempty"`
	SNRDB         *float64 `yaml:"snr_db,omitempty"`
	HangMillis    int      `yaml:"hang_ms,omitempty"`
}

// Sink is one output destination owned by a Channel (spec.md 3, 4.4).
type Sink struct {
	Type SinkKind `yaml:"type"`

	// File sink options.
	Directory             string `yaml:"directory,omitempty"`
	FilenameTemplate      string `yaml:"filename_template,omitempty"`
	Continuous            bool   `yaml:"continuous,omitempty"`
	SplitOnTransmission   bool   `yaml:"split_on_transmission,omitempty"`
	IncludeFreq           bool   `yaml:"include_freq,omitempty"`
	Append                bool   `yaml:"append,omitempty"`
	DatedSubdirectories   bool   `yaml:"dated_subdirectories,omitempty"`
	ChunkDurationMinutes  int    `yaml:"chunk_duration_minutes,omitempty"`
	Format                string `yaml:"format,omitempty"` // "mp3" | "wav" | "pcm"

	// UDP sink options.
	DestAddress  string `yaml:"dest_address,omitempty"`
	DestPort     int    `yaml:"dest_port,omitempty"`
	UDPHeaders   bool   `yaml:"udp_headers,omitempty"`
	UDPChunking  *bool  `yaml:"udp_chunking,omitempty"`

	// Icecast sink options.
	Server     string `yaml:"server,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Mountpoint string `yaml:"mountpoint,omitempty"`
	Username   string `yaml:"username,omitempty"`
	Password   string `yaml:"password,omitempty"`
	StreamName string `yaml:"name,omitempty"`

	// HTTP API (boondock) sink options.
	URL        string `yaml:"url,omitempty"`
	InlineB64  bool   `yaml:"inline_base64,omitempty"`

	// Redis sink options.
	RedisAddr string `yaml:"redis_addr,omitempty"`
	RedisDB   int    `yaml:"redis_db,omitempty"`

	Enabled bool `yaml:"enabled"`

	// resolvedUDPPort is derived once at channel activation per
	// spec.md 9's Open Question, never recomputed in hot paths.
	resolvedUDPPort int
}

// Channel is one narrow voice channel (spec.md 3).
type Channel struct {
	Index       int        `yaml:"index"`
	Label       string     `yaml:"label"`
	FreqHz      float64    `yaml:"freq_hz"`
	Modulation  Modulation `yaml:"modulation"`
	BandwidthHz float64    `yaml:"bandwidth_hz"`
	HighpassHz  float64    `yaml:"highpass_hz,omitempty"`
	LowpassHz   float64    `yaml:"lowpass_hz,omitempty"`
	AmpFactor   float64    `yaml:"amp_factor,omitempty"`
	Squelch     Squelch    `yaml:"squelch,omitempty"`
	AFCSteps    int        `yaml:"afc_steps,omitempty"`
	NotchHz     float64    `yaml:"notch_hz,omitempty"`
	NotchQ      float64    `yaml:"notch_q,omitempty"`
	CTCSSToneHz float64    `yaml:"ctcss_tone_hz,omitempty"`
	Outputs     []Sink     `yaml:"outputs,omitempty"`
	Enabled     bool       `yaml:"enabled"`
}

// Frequency returns the channel frequency in Hz.
func (c *Channel) Frequency() float64 {
	return c.FreqHz
}

// Key identifies a sink for idempotence checks (spec.md 8: "identical sink
// identities (by key = device_index, channel_index, sink_type,
// endpoint)").
func (s *Sink) Key(deviceIndex, channelIndex int) SinkKey {
	return SinkKey{
		DeviceIndex:  deviceIndex,
		ChannelIndex: channelIndex,
		Type:         s.Type,
		Endpoint:     s.endpoint(),
	}
}

func (s *Sink) endpoint() string {
	switch s.Type {
	case SinkFile:
		return s.Directory + "/" + s.FilenameTemplate
	case SinkUDP:
		return s.DestAddress
	case SinkIcecast:
		return s.Server + "/" + s.Mountpoint
	case SinkHTTPAPI:
		return s.URL
	case SinkRedis:
		return s.RedisAddr
	default:
		return ""
	}
}

// SinkKey is the stable identity used for idempotent topology comparison.
type SinkKey struct {
	DeviceIndex  int
	ChannelIndex int
	Type         SinkKind
	Endpoint     string
}

// Device is one SDR front end (spec.md 3).
type Device struct {
	Index             int        `yaml:"index"`
	Kind              DeviceKind `yaml:"kind"`
	SampleRateHz      float64    `yaml:"sample_rate_hz"`
	CenterFreqHz      float64    `yaml:"center_freq_hz"`
	Gain              float64    `yaml:"gain,omitempty"`
	FreqCorrectionPPM float64    `yaml:"freq_correction_ppm,omitempty"`
	FFTSize           int        `yaml:"fft_size,omitempty"`
	ChannelFFTSize    int        `yaml:"channel_fft_size,omitempty"`
	SpeedupFactor     float64    `yaml:"speedup_factor,omitempty"` // file replay only
	Source            string     `yaml:"source,omitempty"`         // file path / hw serial / address
	Enabled           bool       `yaml:"enabled"`
	Channels          []Channel  `yaml:"channels"`
}

// CenterFrequency returns the device's center frequency in Hz.
func (d *Device) CenterFrequency() float64 {
	return d.CenterFreqHz
}

// Config is the top-level declarative document the control plane posts
// (spec.md 6).
type Config struct {
	GlobalRecordingDirectory string   `yaml:"global_recording_directory,omitempty"`
	MaxChannelsPerDevice     int      `yaml:"max_channels_per_device,omitempty"`
	Devices                  []Device `yaml:"devices"`
}
