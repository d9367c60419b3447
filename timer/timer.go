// Package timer provides polled software timers over free-running unsigned
// counters, for pacing work without callbacks or goroutines. A timer never
// fires on its own; call sites poll Expired/ExpiredCont at whatever cadence
// suits them.
//
// All arithmetic is done in the counter's own width, so a counter that wraps
// (a uint16 millisecond tick wraps every ~65.5 s) is handled transparently:
// now-started is exact as long as the real gap is below one full wrap. The
// one obligation this leaves with the caller is to poll often enough that a
// wrapped interval cannot be mistaken for a short one; the timer itself
// cannot detect that.
package timer

import (
	"time"

	"golang.org/x/exp/constraints"
)

// Source samples a free-running counter of width T. It must be monotonic
// modulo 2^width; absolute value and epoch are irrelevant.
type Source[T constraints.Unsigned] func() T

// Timer tracks one interval against a Source. The zero value is not usable;
// construct with New (or NewShort/NewLong).
type Timer[T constraints.Unsigned] struct {
	started T
	running bool
	now     Source[T]
}

// New returns a stopped timer over src.
func New[T constraints.Unsigned](src Source[T]) Timer[T] {
	return Timer[T]{now: src}
}

// Short is a 16-bit timer: cheap, wraps quickly, meant for sub-minute
// periods polled frequently.
type Short = Timer[uint16]

// Long is a 32-bit timer for second-to-days scale periods.
type Long = Timer[uint32]

func NewShort(src Source[uint16]) Short { return New[uint16](src) }
func NewLong(src Source[uint32]) Long   { return New[uint32](src) }

// Millis is the stock 32-bit millisecond source.
func Millis() uint32 { return uint32(time.Now().UnixMilli()) }

// Millis16 is the stock 16-bit millisecond source.
func Millis16() uint16 { return uint16(time.Now().UnixMilli()) }

// Start (re)arms the timer at the current counter value.
func (t *Timer[T]) Start() {
	t.started = t.now()
	t.running = true
}

// Running reports whether the timer is armed and has not expired yet.
func (t *Timer[T]) Running() bool { return t.running }

// Expired reports whether at least period counter ticks have passed since
// Start. Edge-triggered: the first true disarms the timer, so a poll loop
// sees exactly one true per Start. The comparison is inclusive, and a zero
// period expires on the first poll. Always false while disarmed.
func (t *Timer[T]) Expired(period T) bool {
	if !t.running {
		return false
	}
	if t.now()-t.started >= period {
		t.running = false
		return true
	}
	return false
}

// ExpiredCont is the level-triggered variant: true whenever the timer is not
// armed or the period has passed. Suited for "at most every period" gating
// where the caller re-Starts after acting.
func (t *Timer[T]) ExpiredCont(period T) bool {
	return !t.running || t.Expired(period)
}

// Elapsed returns the ticks since Start while armed, zero otherwise.
func (t *Timer[T]) Elapsed() T {
	if !t.running {
		var zero T
		return zero
	}
	return t.now() - t.started
}
