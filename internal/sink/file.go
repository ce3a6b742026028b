package sink

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	mp3 "github.com/braheezy/shine-mp3/pkg/mp3"
	"github.com/lestrrat-go/strftime"

	"github.com/airbandcore/airbandcore/internal/config"
)

// FileWriter writes demodulated audio to disk as MP3, WAV, or raw PCM
// (spec.md 4.4 File sink). Filenames are built from a strftime pattern
// (grounded on the teacher's xmit.go use of
// github.com/lestrrat-go/strftime for timestamp formatting) plus
// {label}/{freq} token substitution; with include_freq and no {freq}
// token, "_<freq>" is appended to the expanded name.
type FileWriter struct {
	cfg    config.Sink
	label  string
	freqHz float64

	f            *os.File
	buf          *bytes.Buffer // accumulates PCM samples between rotations
	currentPath  string
	openedAt     time.Time
	wasOpenLast  bool    // tracks squelch transitions for split_on_transmission
	channelRateHz float64
}

// NewFileWriter builds an (unopened) file sink writer for one channel.
func NewFileWriter(cfg config.Sink, label string, freqHz float64) *FileWriter {
	return &FileWriter{cfg: cfg, label: label, freqHz: freqHz, buf: &bytes.Buffer{}}
}

func (w *FileWriter) Open() error {
	return os.MkdirAll(w.directory(time.Now()), 0o755)
}

func (w *FileWriter) Close() error {
	return w.rotate(time.Time{})
}

func (w *FileWriter) Flush() error {
	if w.f == nil {
		return nil
	}
	return w.f.Sync()
}

// Write buffers fr's samples, opening/rotating the current file as
// continuous/split_on_transmission/chunk_duration_minutes dictate.
func (w *FileWriter) Write(fr Frame) error {
	if fr.SampleRateHz > 0 {
		w.channelRateHz = fr.SampleRateHz
	}
	if !w.cfg.Continuous && !fr.SquelchOpen && !w.wasOpenLast {
		return nil
	}

	if w.cfg.SplitOnTransmission {
		if fr.SquelchOpen && !w.wasOpenLast {
			if err := w.ensureOpen(fr.Timestamp); err != nil {
				return err
			}
		}
		if !fr.SquelchOpen && w.wasOpenLast {
			defer w.rotate(fr.Timestamp)
		}
	} else {
		if err := w.ensureOpen(fr.Timestamp); err != nil {
			return err
		}
	}
	w.wasOpenLast = fr.SquelchOpen

	if w.cfg.ChunkDurationMinutes > 0 && !w.openedAt.IsZero() {
		if fr.Timestamp.Sub(w.openedAt) >= time.Duration(w.cfg.ChunkDurationMinutes)*time.Minute {
			if err := w.rotate(fr.Timestamp); err != nil {
				return err
			}
			if err := w.ensureOpen(fr.Timestamp); err != nil {
				return err
			}
		}
	}

	if w.f == nil {
		return nil
	}
	return binary.Write(w.buf, binary.LittleEndian, pcm16(fr.Samples))
}

func (w *FileWriter) ensureOpen(ts time.Time) error {
	if w.f != nil {
		return nil
	}
	path, err := w.resolvePath(ts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	flags := os.O_CREATE | os.O_WRONLY
	if w.cfg.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}
	w.f = f
	w.currentPath = path
	w.openedAt = ts
	w.buf.Reset()
	return nil
}

func (w *FileWriter) rotate(_ time.Time) error {
	if w.f == nil {
		return nil
	}
	defer func() { w.f = nil }()

	if err := w.encodeAndFlush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// encodeAndFlush writes the accumulated PCM buffer out in the configured
// format, grounded on msiner-sdrplay-go's wav.Header struct for WAV and
// braheezy/shine-mp3's mp3.Encoder for MP3.
func (w *FileWriter) encodeAndFlush() error {
	samples := w.buf.Bytes()
	switch strings.ToLower(w.cfg.Format) {
	case "mp3":
		return w.writeMP3(samples)
	case "pcm":
		_, err := w.f.Write(samples)
		return err
	default:
		return w.writeWAV(samples)
	}
}

func (w *FileWriter) writeMP3(pcmBytes []byte) error {
	samples := make([]int16, len(pcmBytes)/2)
	if err := binary.Read(bytes.NewReader(pcmBytes), binary.LittleEndian, samples); err != nil {
		return err
	}
	// shine-mp3 has a documented mono-increment bug; duplicate to stereo.
	stereo := make([]int16, len(samples)*2)
	for i, s := range samples {
		stereo[i*2] = s
		stereo[i*2+1] = s
	}
	enc := mp3.NewEncoder(int(w.sampleRate()), 2)
	return enc.Write(w.f, stereo)
}

func (w *FileWriter) writeWAV(pcmBytes []byte) error {
	sr := uint32(w.sampleRate())
	numFrames := uint32(len(pcmBytes) / 2)
	const bytesPerSample = 2
	const numChannels = 1

	if err := binary.Write(w.f, binary.LittleEndian, wavHeader(sr, numChannels, bytesPerSample, numFrames)); err != nil {
		return err
	}
	_, err := w.f.Write(pcmBytes)
	return err
}

func (w *FileWriter) sampleRate() float64 {
	if w.channelRateHz > 0 {
		return w.channelRateHz
	}
	return 48000 // default until the first frame reports the channel's actual decimated rate
}

// directory resolves global_recording_directory + "/" + label unless an
// explicit directory override is configured (spec.md 4.4), optionally
// nesting a YYYY-MM-DD subdirectory.
func (w *FileWriter) directory(ts time.Time) string {
	dir := w.cfg.Directory
	if w.cfg.DatedSubdirectories {
		dir = filepath.Join(dir, ts.Format("2006-01-02"))
	}
	return dir
}

func (w *FileWriter) resolvePath(ts time.Time) (string, error) {
	pattern := w.cfg.FilenameTemplate
	if pattern == "" {
		pattern = "%Y%m%d_%H%M%S"
	}
	name, err := strftime.Format(pattern, ts)
	if err != nil {
		return "", fmt.Errorf("filename_template: %w", err)
	}
	name = strings.ReplaceAll(name, "{label}", w.label)
	if w.cfg.IncludeFreq {
		freq := strconv.FormatFloat(w.freqHz/1e6, 'f', 4, 64) + "MHz"
		if strings.Contains(name, "{freq}") {
			name = strings.ReplaceAll(name, "{freq}", freq)
		} else {
			name += "_" + freq
		}
	}
	ext := w.cfg.Format
	if ext == "" {
		ext = "wav"
	}
	if !strings.HasSuffix(name, "."+ext) {
		name += "." + ext
	}
	return filepath.Join(w.directory(ts), name), nil
}

func pcm16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := s * math.MaxInt16
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		out[i] = int16(v)
	}
	return out
}
