// Package serial provides the byte channel between the printer firmware and
// its host link. A Port pairs a hardware Transport with a lock-free receive
// ring: the transport's receive path (interrupt context on hardware) deposits
// bytes via a callback, and the application side drains them without blocking.
//
// Writes block by spinning until the transport can accept the next byte.
// There is no transmit timeout; a stalled transport stalls the writer, which
// matches the wire protocol's expectation that the host is always draining.
package serial

import (
	"errors"

	"printcore-go/errcode"
)

var (
	// ErrRxEmpty is returned by ReadByte when no byte is buffered.
	ErrRxEmpty = errors.New("serial: rx buffer empty")
	// ErrClosed is returned once the port has been closed.
	ErrClosed = errors.New("serial: port closed")
)

// Transport is the raw byte device under a Port. Implementations exist for
// the RP2 PL011 UARTs and for an in-memory loopback used on the host.
type Transport interface {
	// Configure applies baud and framing. Called once by Open, before any
	// receive callback is attached.
	Configure(cfg Config) error

	// Ready reports whether Send can accept a byte right now.
	Ready() bool

	// Send hands one byte to the device. Callers must see Ready() first.
	Send(b byte)

	// Attach installs the receive callback. The callback runs in the
	// transport's receive context and must not block; Open attaches last so
	// no byte can arrive before the port is able to store it.
	Attach(fn func(b byte))

	// Detach removes the receive callback and stops delivery.
	Detach()
}

// Parity mirrors the usual UART parity settings.
type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// Config carries port settings. Zero fields take defaults.
type Config struct {
	Baud  uint32 // default 115200
	RxBuf int    // receive ring capacity in bytes; default 32
	Events int   // diagnostic event queue depth; default 4

	// Framing; defaults 8N1.
	DataBits uint8
	StopBits uint8
	Parity   Parity

	// Pin numbers for hardware transports. Both zero selects the board's
	// default UART pins. Ignored by the loopback.
	TX, RX int
}

func (c Config) withDefaults() Config {
	if c.Baud == 0 {
		c.Baud = 115200
	}
	if c.RxBuf == 0 {
		c.RxBuf = 32
	}
	if c.Events == 0 {
		c.Events = 4
	}
	if c.DataBits == 0 {
		c.DataBits = 8
	}
	if c.StopBits == 0 {
		c.StopBits = 1
	}
	return c
}

// Event is a best-effort diagnostic emitted from the receive path.
// Delivery is non-blocking: when the event queue is full the event is lost,
// never the receive path's time.
type Event struct {
	Code    errcode.Code // errcode.BufferFull for receive overflow
	Dropped uint32       // total bytes dropped since Open
}

// Stats is a snapshot of the port's byte counters.
type Stats struct {
	RxBytes uint32
	TxBytes uint32
	Dropped uint32
}
