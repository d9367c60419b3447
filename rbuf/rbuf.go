// Package rbuf provides a fixed-size single-producer single-consumer byte
// ring for interrupt-to-task handoff. The producer side is safe to call from
// a delivery/ISR context, the consumer side from task context; no locks are
// taken on either path and no allocation happens after New.
package rbuf

import (
	"errors"
	"sync/atomic"

	"printcore-go/errcode"
)

// Reserve is the slack kept between the write and read index so that a full
// ring is distinguishable from an empty one. Usable capacity is always
// storage capacity minus Reserve.
const Reserve = 1

// MinCapacity is the smallest storage capacity New accepts.
const MinCapacity = Reserve + 1

// ErrFull is returned by Put when the ring is at usable capacity.
var ErrFull = errors.New("rbuf: buffer full")

// Ring is an SPSC byte ring. Indices always stay within [0, capacity) and
// advance modulo capacity. Each side mutates only its own index and publishes
// it atomically after the data access, so the peer never observes an index
// covering an unwritten slot.
type Ring struct {
	buf []byte
	rd  atomic.Uint32 // consumer-owned
	wr  atomic.Uint32 // producer-owned
}

// New allocates a ring with the given storage capacity in bytes. The usable
// capacity is capacity-Reserve. Capacities below MinCapacity are a
// configuration error; callers that cannot proceed without the ring should
// treat it as fatal.
func New(capacity int) (*Ring, error) {
	if capacity < MinCapacity || capacity > 1<<30 {
		return nil, &errcode.E{C: errcode.Config, Op: "rbuf.New", Msg: "capacity out of range"}
	}
	return &Ring{buf: make([]byte, capacity)}, nil
}

// Put appends one byte. Producer side only. When the ring is at usable
// capacity it returns ErrFull and leaves the contents untouched; the caller
// decides whether dropping the byte is acceptable.
func (r *Ring) Put(b byte) error {
	wr := r.wr.Load()
	next := wr + 1
	if next == uint32(len(r.buf)) {
		next = 0
	}
	if next == r.rd.Load() {
		return ErrFull
	}
	r.buf[wr] = b
	r.wr.Store(next)
	return nil
}

// Get removes and returns the oldest byte. Consumer side only. The second
// return is false when the ring is empty.
func (r *Ring) Get() (byte, bool) {
	rd := r.rd.Load()
	if rd == r.wr.Load() {
		return 0, false
	}
	b := r.buf[rd]
	next := rd + 1
	if next == uint32(len(r.buf)) {
		next = 0
	}
	r.rd.Store(next)
	return b, true
}

// Len reports the number of buffered bytes. Exact from either side only for
// the index that side owns; a concurrent peer can move the other index, so
// treat cross-side values as a snapshot.
func (r *Ring) Len() int {
	c := uint32(len(r.buf))
	return int((r.wr.Load() + c - r.rd.Load()) % c)
}

// Cap reports the usable capacity (storage minus Reserve).
func (r *Ring) Cap() int { return len(r.buf) - Reserve }

// Free reports how many more bytes Put can accept right now.
func (r *Ring) Free() int { return r.Cap() - r.Len() }
