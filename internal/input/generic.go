package input

import (
	"context"
	"encoding/binary"
	"math"
	"sync"

	"github.com/airbandcore/airbandcore/internal/errs"
	hamlib "github.com/xylo04/goHamlib"
	"github.com/pkg/term"
)

// RigController is the CAT-control surface a generic device uses to tune
// itself; satisfied by a goHamlib-backed rig or a test double.
type RigController interface {
	SetFreq(hz float64) error
	Close() error
}

// hamlibRig adapts goHamlib to RigController. It is the one place this
// package talks to a real rig; everything else works against the
// RigController interface.
type hamlibRig struct {
	rig *hamlib.Rig
}

func openHamlibRig(model int, port string) (*hamlibRig, error) {
	r, err := hamlib.Open(model, port)
	if err != nil {
		return nil, err
	}
	return &hamlibRig{rig: r}, nil
}

func (h *hamlibRig) SetFreq(hz float64) error { return h.rig.SetFreq(hz) }
func (h *hamlibRig) Close() error             { return h.rig.Close() }

// GenericDriver drives a CAT-controlled rig whose IQ output arrives over a
// plain serial line, for radios with neither a native USB SDR protocol nor
// a USB-audio front end (spec.md 4.1's catch-all device kind). Grounded on
// the teacher's serial_port.go github.com/pkg/term usage for the data path
// and the teacher's (disabled, cgo) hamlib CAT integration for tuning --
// here done with the pure-Go xylo04/goHamlib binding instead.
type GenericDriver struct {
	RigModel int
	RigPort  string
	DataPort string
	BaudRate int

	mu   sync.Mutex
	rig  RigController
	conn *term.Term
}

// NewGenericDriver builds an unopened rig+serial driver.
func NewGenericDriver(rigModel int, rigPort, dataPort string, baud int) *GenericDriver {
	return &GenericDriver{RigModel: rigModel, RigPort: rigPort, DataPort: dataPort, BaudRate: baud}
}

func (d *GenericDriver) Open(_ context.Context, cfg Config) error {
	rig, err := openHamlibRig(d.RigModel, d.RigPort)
	if err != nil {
		return errs.Wrap(errs.KindDeviceInit, "input.generic", "hamlib open", err)
	}
	if err := rig.SetFreq(cfg.CenterFreqHz); err != nil {
		rig.Close()
		return errs.Wrap(errs.KindDeviceInit, "input.generic", "set freq", err)
	}

	conn, err := term.Open(d.DataPort, term.RawMode)
	if err != nil {
		rig.Close()
		return errs.Wrap(errs.KindDeviceInit, "input.generic", "open serial "+d.DataPort, err)
	}
	if d.BaudRate > 0 {
		if err := conn.SetSpeed(d.BaudRate); err != nil {
			conn.Close()
			rig.Close()
			return errs.Wrap(errs.KindDeviceInit, "input.generic", "set baud", err)
		}
	}

	d.mu.Lock()
	d.rig = rig
	d.conn = conn
	d.mu.Unlock()
	return nil
}

func (d *GenericDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var err error
	if d.conn != nil {
		err = d.conn.Close()
		d.conn = nil
	}
	if d.rig != nil {
		if rigErr := d.rig.Close(); rigErr != nil && err == nil {
			err = rigErr
		}
		d.rig = nil
	}
	return err
}

// ReadInto reads interleaved little-endian int16 IQ pairs off the serial
// line and normalizes them to float32 in [-1, 1].
func (d *GenericDriver) ReadInto(dst []float32) (int, error) {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return 0, errs.New(errs.KindInternal, "input.generic", "read before open")
	}

	wantComplex := len(dst) / 2
	raw := make([]byte, wantComplex*4)
	n, err := conn.Read(raw)
	if err != nil {
		return 0, errs.Wrap(errs.KindInputTransient, "input.generic", "serial read", err)
	}

	gotComplex := n / 4
	for i := 0; i < gotComplex; i++ {
		iRaw := int16(binary.LittleEndian.Uint16(raw[i*4:]))
		qRaw := int16(binary.LittleEndian.Uint16(raw[i*4+2:]))
		dst[i*2] = float32(iRaw) / math.MaxInt16
		dst[i*2+1] = float32(qRaw) / math.MaxInt16
	}
	return gotComplex, nil
}
