// cmd/selftest/main.go
//
// Host smoke test for the byte-path primitives: ring FIFO and overflow,
// timer edges and wraparound, and the assembled serial channel. Prints one
// PASS/FAIL line per stage and exits non-zero on any failure.
package main

import (
	"os"

	"printcore-go/rbuf"
	"printcore-go/serial"
	"printcore-go/timer"
)

var failed bool

func check(name string, ok bool) {
	if ok {
		println("[selftest]", name, "PASS")
	} else {
		println("[selftest]", name, "FAIL")
		failed = true
	}
}

func main() {
	println("[selftest] boot")

	check("ring/fifo:", testRingFIFO())
	check("ring/full:", testRingFull())
	check("timer/edge:", testTimerEdge())
	check("timer/wrap:", testTimerWrap())
	check("channel/order:", testChannelOrder())
	check("channel/overflow:", testChannelOverflow())

	if failed {
		println("[selftest] FAIL")
		os.Exit(1)
	}
	println("[selftest] PASS")
}

// FIFO across several wraps of a small ring.
func testRingFIFO() bool {
	r, err := rbuf.New(4) // usable capacity 3
	if err != nil {
		return false
	}
	next := byte(0)
	for round := 0; round < 10; round++ {
		for i := 0; i < 3; i++ {
			if r.Put(next+byte(i)) != nil {
				return false
			}
		}
		for i := 0; i < 3; i++ {
			b, ok := r.Get()
			if !ok || b != next+byte(i) {
				return false
			}
		}
		next += 3
	}
	_, ok := r.Get()
	return !ok // drained
}

// The put after capacity must fail and leave the content intact.
func testRingFull() bool {
	r, err := rbuf.New(4)
	if err != nil {
		return false
	}
	for i := byte(1); i <= 3; i++ {
		if r.Put(i) != nil {
			return false
		}
	}
	if r.Put(99) != rbuf.ErrFull {
		return false
	}
	if r.Len() != 3 {
		return false
	}
	for i := byte(1); i <= 3; i++ {
		b, ok := r.Get()
		if !ok || b != i {
			return false
		}
	}
	return true
}

// Edge trigger, zero period, and the inclusive boundary.
func testTimerEdge() bool {
	var now uint16
	t := timer.NewShort(func() uint16 { return now })

	t.Start()
	if !t.Expired(0) { // zero period expires on the first poll
		return false
	}
	if t.Expired(0) { // and only once per Start
		return false
	}

	now = 100
	t.Start()
	now = 100 + 9
	if t.Expired(10) { // one tick early
		return false
	}
	now = 100 + 10
	if !t.Expired(10) { // exactly on the boundary
		return false
	}
	return true
}

// Unsigned subtraction keeps periods exact across the counter wrap.
func testTimerWrap() bool {
	var now uint16 = 65530
	t := timer.NewShort(func() uint16 { return now })

	t.Start()
	now = 3 // 9 ticks later
	if t.Expired(10) {
		return false
	}
	now = 4 // 10 ticks later
	return t.Expired(10)
}

// Three arrivals on a capacity-4 channel read back in order, then empty.
func testChannelOrder() bool {
	l := serial.NewLoopback()
	p, err := serial.Open(l, serial.Config{RxBuf: 4})
	if err != nil {
		return false
	}
	defer p.Close()

	l.Inject(0x41, 0x42, 0x43)
	for _, want := range []byte{0x41, 0x42, 0x43} {
		b, err := p.ReadByte()
		if err != nil || b != want {
			return false
		}
	}
	_, err = p.ReadByte()
	return err == serial.ErrRxEmpty
}

// A fourth arrival overflows: dropped, counted, reported, reads unharmed.
func testChannelOverflow() bool {
	l := serial.NewLoopback()
	p, err := serial.Open(l, serial.Config{RxBuf: 4})
	if err != nil {
		return false
	}
	defer p.Close()

	l.Inject(1, 2, 3, 4)

	select {
	case ev := <-p.Events():
		if ev.Dropped != 1 {
			return false
		}
	default:
		return false
	}
	for _, want := range []byte{1, 2, 3} {
		b, err := p.ReadByte()
		if err != nil || b != want {
			return false
		}
	}
	if _, err := p.ReadByte(); err != serial.ErrRxEmpty {
		return false
	}
	return p.Stats().Dropped == 1
}
