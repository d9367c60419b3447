//go:build rp2040 || rp2350

package serial

import (
	"device/rp"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// UARTNum selects one of the two PL011 instances.
type UARTNum uint8

const (
	UART0 UARTNum = iota
	UART1
)

// NewUART returns a Transport over the given PL011. The driver's interrupt
// handler buffers incoming bytes; a relay goroutine (started by Attach)
// drains that buffer into the port's receive callback.
func NewUART(n UARTNum) Transport {
	u := uartx.UART0
	if n == UART1 {
		u = uartx.UART1
	}
	return &rp2Transport{u: u}
}

type rp2Transport struct {
	u    *uartx.UART
	quit chan struct{}
}

func (t *rp2Transport) Configure(cfg Config) error {
	err := t.u.Configure(uartx.UARTConfig{
		BaudRate: cfg.Baud,
		TX:       machine.Pin(cfg.TX),
		RX:       machine.Pin(cfg.RX),
	})
	if err != nil {
		return err
	}
	var par uartx.UARTParity
	switch cfg.Parity {
	case ParityEven:
		par = uartx.ParityEven
	case ParityOdd:
		par = uartx.ParityOdd
	default:
		par = uartx.ParityNone
	}
	return t.u.SetFormat(cfg.DataBits, cfg.StopBits, par)
}

// Ready probes the TX FIFO full flag directly so the caller owns the spin.
func (t *rp2Transport) Ready() bool {
	return !t.u.Bus.UARTFR.HasBits(rp.UART0_UARTFR_TXFF)
}

// Send stores one byte into the data register. Callers checked Ready, so the
// FIFO has space.
func (t *rp2Transport) Send(b byte) {
	t.u.Bus.UARTDR.Set(uint32(b))
}

func (t *rp2Transport) Attach(fn func(byte)) {
	t.quit = make(chan struct{})
	go t.relay(fn)
}

// relay moves bytes from the driver's interrupt-filled buffer to the port.
// Readable is coalesced, so each wake drains everything buffered.
func (t *rp2Transport) relay(fn func(byte)) {
	for {
		select {
		case <-t.u.Readable():
			for {
				b, err := t.u.ReadByte()
				if err != nil {
					break
				}
				fn(b)
			}
		case <-t.quit:
			return
		}
	}
}

func (t *rp2Transport) Detach() {
	if t.quit != nil {
		close(t.quit)
		t.quit = nil
	}
}
