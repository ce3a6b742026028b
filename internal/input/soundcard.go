package input

import (
	"context"

	"github.com/airbandcore/airbandcore/internal/errs"
	"github.com/gordonklaus/portaudio"
)

// SoundcardDriver reads IQ samples from a USB-audio-class SDR front end --
// dongles like the FUNcube Dongle present their downconverted IQ output as
// a stereo sound card, left = I, right = Q. Grounded on the blocking-read
// portaudio.OpenStream/Read pattern used across the corpus's audio capture
// code (SPEC_FULL.md 6).
type SoundcardDriver struct {
	stream *portaudio.Stream
	buf    []int16
}

// NewSoundcardDriver builds an unopened soundcard-backed driver.
func NewSoundcardDriver() *SoundcardDriver {
	return &SoundcardDriver{}
}

func (d *SoundcardDriver) Open(_ context.Context, cfg Config) error {
	if err := portaudio.Initialize(); err != nil {
		return errs.Wrap(errs.KindDeviceInit, "input.soundcard", "portaudio init", err)
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		portaudio.Terminate()
		return errs.Wrap(errs.KindDeviceInit, "input.soundcard", "default input device", err)
	}

	const framesPerBuffer = 1024
	d.buf = make([]int16, framesPerBuffer*2) // stereo = I/Q

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 2,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      cfg.SampleRateHz,
		FramesPerBuffer: framesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, &d.buf)
	if err != nil {
		portaudio.Terminate()
		return errs.Wrap(errs.KindDeviceInit, "input.soundcard", "open stream", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return errs.Wrap(errs.KindDeviceInit, "input.soundcard", "start stream", err)
	}

	d.stream = stream
	return nil
}

func (d *SoundcardDriver) Close() error {
	if d.stream == nil {
		return nil
	}
	err := d.stream.Close()
	portaudio.Terminate()
	d.stream = nil
	return err
}

// ReadInto blocks on the portaudio stream for one buffer's worth of
// stereo int16 samples and normalizes them to interleaved float32 IQ.
func (d *SoundcardDriver) ReadInto(dst []float32) (int, error) {
	if d.stream == nil {
		return 0, errs.New(errs.KindInternal, "input.soundcard", "read before open")
	}
	if err := d.stream.Read(); err != nil {
		return 0, errs.Wrap(errs.KindInputTransient, "input.soundcard", "stream read", err)
	}

	n := len(d.buf) / 2
	if n > len(dst)/2 {
		n = len(dst) / 2
	}
	for i := 0; i < n; i++ {
		dst[i*2] = float32(d.buf[i*2]) / 32768.0
		dst[i*2+1] = float32(d.buf[i*2+1]) / 32768.0
	}
	return n, nil
}
