package serial

import (
	"sync"
	"sync/atomic"
)

// Loopback is an in-memory Transport for host builds and tests. Inject
// simulates remote byte arrivals; Sent captures everything the port
// transmitted. With Echo enabled, sent bytes are looped straight back to
// the receive callback.
type Loopback struct {
	mu   sync.Mutex
	recv func(byte)
	sent []byte
	baud uint32

	ready atomic.Bool
	echo  atomic.Bool
}

func NewLoopback() *Loopback {
	l := &Loopback{}
	l.ready.Store(true)
	return l
}

func (l *Loopback) Configure(cfg Config) error {
	l.mu.Lock()
	l.baud = cfg.Baud
	l.mu.Unlock()
	return nil
}

func (l *Loopback) Ready() bool { return l.ready.Load() }

func (l *Loopback) Send(b byte) {
	l.mu.Lock()
	l.sent = append(l.sent, b)
	fn := l.recv
	l.mu.Unlock()
	if l.echo.Load() && fn != nil {
		fn(b)
	}
}

func (l *Loopback) Attach(fn func(byte)) {
	l.mu.Lock()
	l.recv = fn
	l.mu.Unlock()
}

func (l *Loopback) Detach() {
	l.mu.Lock()
	l.recv = nil
	l.mu.Unlock()
}

// Inject delivers bytes as if they arrived from the remote end. Bytes
// injected before Attach are lost, same as a wire with nobody listening.
func (l *Loopback) Inject(p ...byte) {
	l.mu.Lock()
	fn := l.recv
	l.mu.Unlock()
	if fn == nil {
		return
	}
	for _, b := range p {
		fn(b)
	}
}

// InjectString is Inject for string payloads.
func (l *Loopback) InjectString(s string) { l.Inject([]byte(s)...) }

// Sent returns a copy of everything transmitted so far.
func (l *Loopback) Sent() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]byte, len(l.sent))
	copy(out, l.sent)
	return out
}

// SetReady flips transmit readiness; with ready false, writers spin.
func (l *Loopback) SetReady(ok bool) { l.ready.Store(ok) }

// SetEcho loops transmitted bytes back into the receive path.
func (l *Loopback) SetEcho(on bool) { l.echo.Store(on) }

// Baud reports the configured baud rate.
func (l *Loopback) Baud() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.baud
}
