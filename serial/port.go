package serial

import (
	"context"
	"io"
	"runtime"
	"sync/atomic"

	"tinygo.org/x/drivers"

	"printcore-go/errcode"
	"printcore-go/rbuf"
)

// Port is the asynchronous byte channel over a Transport.
//
// The receive side is single-producer/single-consumer: the transport's
// receive context is the only producer into the ring, and the application
// is the only consumer. ReadByte and Read never block; WriteByte spins
// until the transport is ready.
type Port struct {
	t   Transport
	cfg Config
	rx  *rbuf.Ring

	readable chan struct{} // coalesced rx readiness, capacity 1
	events   chan Event    // bounded diagnostics, never blocks the rx path
	closed   chan struct{}

	rxBytes   atomic.Uint32
	txBytes   atomic.Uint32
	dropped   atomic.Uint32
	closeFlag atomic.Bool
}

var (
	_ drivers.UART    = (*Port)(nil)
	_ io.StringWriter = (*Port)(nil)
)

// Open validates cfg, sizes the receive ring, configures the transport and
// only then attaches the receive callback, so no byte can arrive before the
// port can store it. Configuration failures are fatal to the caller.
func Open(t Transport, cfg Config) (*Port, error) {
	cfg = cfg.withDefaults()

	rx, err := rbuf.New(cfg.RxBuf)
	if err != nil {
		return nil, err
	}

	if err := t.Configure(cfg); err != nil {
		return nil, &errcode.E{C: errcode.Config, Op: "serial.Open", Err: err}
	}

	p := &Port{
		t:        t,
		cfg:      cfg,
		rx:       rx,
		readable: make(chan struct{}, 1),
		events:   make(chan Event, cfg.Events),
		closed:   make(chan struct{}),
	}
	t.Attach(p.onRecv)
	return p, nil
}

// onRecv runs in the transport's receive context. It must not block and must
// not allocate: store the byte, or count the drop and squeeze out a
// diagnostic if the queue has room.
func (p *Port) onRecv(b byte) {
	if err := p.rx.Put(b); err != nil {
		d := p.dropped.Add(1)
		select {
		case p.events <- Event{Code: errcode.BufferFull, Dropped: d}:
		default:
		}
		return
	}
	p.rxBytes.Add(1)
	select {
	case p.readable <- struct{}{}:
	default:
	}
}

// WriteByte spins until the transport accepts the byte. There is no timeout:
// a transport that never becomes ready stalls the caller indefinitely.
func (p *Port) WriteByte(c byte) error {
	if p.closeFlag.Load() {
		return ErrClosed
	}
	for !p.t.Ready() {
		runtime.Gosched()
	}
	p.t.Send(c)
	p.txBytes.Add(1)
	return nil
}

// Write blocks until every byte has been handed to the transport.
func (p *Port) Write(b []byte) (int, error) {
	for i, c := range b {
		if err := p.WriteByte(c); err != nil {
			return i, err
		}
	}
	return len(b), nil
}

// WriteString writes s byte by byte without copying it; io.WriteString
// prefers this over Write, which keeps command draining allocation-free.
func (p *Port) WriteString(s string) (int, error) {
	for i := 0; i < len(s); i++ {
		if err := p.WriteByte(s[i]); err != nil {
			return i, err
		}
	}
	return len(s), nil
}

// ReadByte pops one byte from the receive ring. It never blocks; when the
// ring is empty it returns ErrRxEmpty.
func (p *Port) ReadByte() (byte, error) {
	if b, ok := p.rx.Get(); ok {
		return b, nil
	}
	return 0, ErrRxEmpty
}

// Read drains up to len(b) buffered bytes. It never blocks; an idle port
// yields (0, nil), not io.EOF.
func (p *Port) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	n := 0
	for n < len(b) {
		c, ok := p.rx.Get()
		if !ok {
			break
		}
		b[n] = c
		n++
	}
	return n, nil
}

// Buffered returns the number of bytes waiting in the receive ring.
func (p *Port) Buffered() int { return p.rx.Len() }

// Readable exposes a coalesced readiness signal suitable for select.
// Wakes can be spurious; callers must re-check state.
func (p *Port) Readable() <-chan struct{} { return p.readable }

// Events exposes the diagnostic queue. Consumers that fall behind lose
// events, never bytes.
func (p *Port) Events() <-chan Event { return p.events }

// RecvByteContext blocks for a single byte or until ctx is done.
func (p *Port) RecvByteContext(ctx context.Context) (byte, error) {
	if b, err := p.ReadByte(); err == nil {
		return b, nil
	}
	for {
		select {
		case <-p.readable:
			if b, err := p.ReadByte(); err == nil {
				return b, nil
			}
		case <-p.closed:
			return 0, ErrClosed
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// RecvSomeContext blocks until at least one byte is available, then reads up
// to len(b).
func (p *Port) RecvSomeContext(ctx context.Context, b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if n, _ := p.Read(b); n > 0 {
		return n, nil
	}
	for {
		select {
		case <-p.readable:
			if n, _ := p.Read(b); n > 0 {
				return n, nil
			}
		case <-p.closed:
			return 0, ErrClosed
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Stats snapshots the byte counters.
func (p *Port) Stats() Stats {
	return Stats{
		RxBytes: p.rxBytes.Load(),
		TxBytes: p.txBytes.Load(),
		Dropped: p.dropped.Load(),
	}
}

// Close detaches the receive callback and unblocks context waiters.
// It is idempotent. Buffered bytes remain readable after Close.
func (p *Port) Close() error {
	if p.closeFlag.Swap(true) {
		return nil
	}
	p.t.Detach()
	close(p.closed)
	return nil
}
