package input

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/airbandcore/airbandcore/internal/errs"
	"github.com/jochenvg/go-udev"
)

// RawReader is implemented by the vendor-specific transport underneath a
// usb-sdr device (bulk USB transfer, SDRplay API, etc). USBSDRDriver
// itself only owns enumeration, hot-plug tracking, and the native-format
// conversion contract; actual bulk transfer is driver-specific and
// injected so this package stays hardware-agnostic.
type RawReader interface {
	Read(dst []byte) (int, error)
	Close() error
}

// USBSDRDriver drives a native USB SDR dongle. It uses go-udev to watch
// for the device's hot (re)attachment so a transient USB stall (spec.md
// 4.1, 7: "transient causes (EAGAIN, USB stall)") can be distinguished
// from a permanent detach.
type USBSDRDriver struct {
	VendorID, ProductID string
	NewReader           func(devNode string) (RawReader, error)

	mu       sync.Mutex
	reader   RawReader
	present  atomic.Bool
	cancel   context.CancelFunc
	scratch  []byte
}

// NewUSBSDRDriver builds a driver whose Open opens a RawReader via
// newReader on the first matching USB device node present at that time;
// Open fails if none is present.
func NewUSBSDRDriver(vendorID, productID string, newReader func(devNode string) (RawReader, error)) *USBSDRDriver {
	return &USBSDRDriver{VendorID: vendorID, ProductID: productID, NewReader: newReader}
}

func (d *USBSDRDriver) Open(ctx context.Context, cfg Config) error {
	devNode, err := d.findDevice()
	if err != nil {
		return errs.Wrap(errs.KindDeviceInit, "input.usbsdr", "enumerate", err)
	}

	reader, err := d.NewReader(devNode)
	if err != nil {
		return errs.Wrap(errs.KindDeviceInit, "input.usbsdr", "open "+devNode, err)
	}

	d.mu.Lock()
	d.reader = reader
	d.mu.Unlock()
	d.present.Store(true)

	watchCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	go d.watchHotplug(watchCtx)

	_ = cfg // gain/correction applied by the vendor-specific RawReader constructor
	return nil
}

func (d *USBSDRDriver) Close() error {
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reader == nil {
		return nil
	}
	err := d.reader.Close()
	d.reader = nil
	return err
}

// ReadInto reads raw native-format bytes and relies on the caller (Stage)
// to have already negotiated interleaved float32 output; USBSDRDriver's
// contract promises that conversion happens before DC blocking, so a
// RawReader is expected to hand back already-normalized interleaved
// float32 samples via its Read([]byte) contract reinterpreted as such by
// the vendor package. When the device is unplugged mid-read, the error is
// reported as transient so spec.md 4.1's retry/backoff applies; a
// sustained absence is escalated to fatal by the Input Stage
// (Stage.ReadFrame) once its backoff has reached maxBackoff.
func (d *USBSDRDriver) ReadInto(dst []float32) (int, error) {
	d.mu.Lock()
	reader := d.reader
	d.mu.Unlock()

	if reader == nil || !d.present.Load() {
		return 0, errs.New(errs.KindInputTransient, "input.usbsdr", "device not present")
	}

	need := len(dst) * 4 // float32 bytes, reinterpreted by the vendor reader
	if cap(d.scratch) < need {
		d.scratch = make([]byte, need)
	}
	buf := d.scratch[:need]

	n, err := reader.Read(buf)
	if err != nil {
		return 0, errs.Wrap(errs.KindInputTransient, "input.usbsdr", "read", err)
	}
	samples := n / 4
	for i := 0; i < samples; i++ {
		dst[i] = bytesToFloat32(buf[i*4 : i*4+4])
	}
	return samples / 2, nil
}

func (d *USBSDRDriver) findDevice() (string, error) {
	u := udev.Udev{}
	e := u.NewEnumerate()
	if err := e.AddMatchSubsystem("usb"); err != nil {
		return "", err
	}
	if d.VendorID != "" {
		if err := e.AddMatchProperty("ID_VENDOR_ID", d.VendorID); err != nil {
			return "", err
		}
	}
	if d.ProductID != "" {
		if err := e.AddMatchProperty("ID_MODEL_ID", d.ProductID); err != nil {
			return "", err
		}
	}
	devices, err := e.Devices()
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", errs.New(errs.KindDeviceInit, "input.usbsdr", "no matching USB device found")
	}
	return devices[0].Devnode(), nil
}

// watchHotplug marks the device absent/present as udev reports
// add/remove events for it, so ReadInto can distinguish a transient stall
// from an actual unplug.
func (d *USBSDRDriver) watchHotplug(ctx context.Context) {
	u := udev.Udev{}
	mon := u.NewMonitorFromNetlink("udev")
	if err := mon.FilterAddMatchSubsystem("usb"); err != nil {
		return
	}
	ch, _, err := mon.DeviceChan(ctx)
	if err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case dev, ok := <-ch:
			if !ok {
				return
			}
			switch dev.Action() {
			case "remove":
				d.present.Store(false)
			case "add", "bind":
				d.present.Store(true)
			}
		}
	}
}

func bytesToFloat32(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}
