package sink

import (
	"encoding/binary"
	"net"
	"strconv"
	"syscall"

	"github.com/airbandcore/airbandcore/internal/config"
	"golang.org/x/sys/unix"
)

const (
	udpMagic        = "BAIR"
	udpMTUSafe      = 1400 // leaves room for headers below common Ethernet MTUs
	udpSendBufBytes = 1 << 20

	// udpFlagContinued marks all but the last chunk of a frame split
	// across multiple datagrams by udp_chunking.
	udpFlagContinued = uint16(1)
)

// UDPWriter streams PCM datagrams to dest_address:dest_port, optionally
// prefixing each packet with the 8-byte header spec.md §6 names --
// magic(4)="BAIR" | seq(2) | flags(2) -- and chunking frames to stay
// under the MTU (spec.md 4.4 UDP stream sink). Packet framing is
// grounded on msiner-sdrplay-go's helpers/udp package.
type UDPWriter struct {
	cfg  config.Sink
	conn *net.UDPConn
	seq  uint16
}

// NewUDPWriter builds an unopened UDP stream writer.
func NewUDPWriter(cfg config.Sink) *UDPWriter {
	return &UDPWriter{cfg: cfg}
}

// udpDialer grows the socket's send buffer for the PCM/MP3 datagram rate
// this sink sustains, since the net package's default is sized for
// short-lived connections rather than a continuous stream (grounded on
// golang.org/x/sys's raw-socket-option usage in msiner-sdrplay-go).
var udpDialer = net.Dialer{
	Control: func(_, _ string, c syscall.RawConn) error {
		var setErr error
		err := c.Control(func(fd uintptr) {
			setErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, udpSendBufBytes)
		})
		if err != nil {
			return err
		}
		return setErr
	},
}

func (w *UDPWriter) Open() error {
	addr := net.JoinHostPort(w.cfg.DestAddress, strconv.Itoa(w.cfg.ResolvedUDPPort()))
	conn, err := udpDialer.Dial("udp", addr)
	if err != nil {
		return err
	}
	w.conn = conn.(*net.UDPConn)
	return nil
}

func (w *UDPWriter) Close() error {
	if w.conn == nil {
		return nil
	}
	return w.conn.Close()
}

func (w *UDPWriter) Flush() error { return nil }

func (w *UDPWriter) Write(fr Frame) error {
	if w.conn == nil {
		return nil
	}
	payload := pcm16Bytes(fr.Samples)

	chunking := w.cfg.UDPChunking == nil || *w.cfg.UDPChunking
	chunkSize := len(payload)
	if chunking && chunkSize > udpMTUSafe {
		chunkSize = udpMTUSafe
	}

	for off := 0; off < len(payload); off += chunkSize {
		end := off + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		flags := uint16(0)
		if off+chunkSize < len(payload) {
			flags |= udpFlagContinued
		}
		if err := w.sendOne(payload[off:end], flags); err != nil {
			return err
		}
	}
	return nil
}

// sendOne prepends the spec.md §6 wire header -- magic(4)="BAIR" |
// seq(2) | flags(2) -- when udp_headers is enabled.
func (w *UDPWriter) sendOne(chunk []byte, flags uint16) error {
	if !w.cfg.UDPHeaders {
		_, err := w.conn.Write(chunk)
		return err
	}
	w.seq++
	hdr := make([]byte, 8)
	copy(hdr[0:4], udpMagic)
	binary.BigEndian.PutUint16(hdr[4:6], w.seq)
	binary.BigEndian.PutUint16(hdr[6:8], flags)
	_, err := w.conn.Write(append(hdr, chunk...))
	return err
}

func pcm16Bytes(samples []float32) []byte {
	s16 := pcm16(samples)
	buf := make([]byte, len(s16)*2)
	for i, v := range s16 {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

