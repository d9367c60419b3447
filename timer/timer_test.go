package timer

import "testing"

// manual counter the tests advance by hand
type clock16 struct{ t uint16 }

func (c *clock16) src() uint16 { return c.t }

type clock32 struct{ t uint32 }

func (c *clock32) src() uint32 { return c.t }

func TestNeverStarted(t *testing.T) {
	c := &clock16{t: 1234}
	tm := NewShort(c.src)

	if tm.Running() {
		t.Fatal("fresh timer reports running")
	}
	if tm.Expired(10) {
		t.Fatal("fresh timer reports expired")
	}
	if !tm.ExpiredCont(10) {
		t.Fatal("ExpiredCont should be true while disarmed")
	}
	if tm.Elapsed() != 0 {
		t.Fatalf("Elapsed while disarmed = %d, want 0", tm.Elapsed())
	}
}

func TestZeroPeriodExpiresOnce(t *testing.T) {
	c := &clock16{t: 500}
	tm := NewShort(c.src)
	tm.Start()

	if !tm.Expired(0) {
		t.Fatal("zero period should expire on first poll")
	}
	if tm.Expired(0) {
		t.Fatal("second poll after expiry should be false")
	}
	if tm.Running() {
		t.Fatal("timer should be disarmed after expiry")
	}
}

func TestBoundaryInclusive(t *testing.T) {
	c := &clock16{t: 100}
	tm := NewShort(c.src)
	tm.Start()

	c.t = 100 + 50 - 1
	if tm.Expired(50) {
		t.Fatal("one tick early should not expire")
	}
	if !tm.Running() {
		t.Fatal("failed poll must not disarm")
	}
	c.t = 100 + 50
	if !tm.Expired(50) {
		t.Fatal("exactly period ticks should expire")
	}
}

func TestWraparound16(t *testing.T) {
	c := &clock16{t: 65530}
	tm := NewShort(c.src)
	tm.Start()

	c.t = 3 // 9 ticks after 65530, one short of the period
	if tm.Expired(10) {
		t.Fatal("expired before period despite wrap")
	}
	c.t = 4 // exactly 10 ticks
	if !tm.Expired(10) {
		t.Fatal("should expire across the counter wrap")
	}
}

func TestElapsed(t *testing.T) {
	c := &clock16{t: 100}
	tm := NewShort(c.src)
	tm.Start()

	c.t = 130
	if got := tm.Elapsed(); got != 30 {
		t.Fatalf("Elapsed = %d, want 30", got)
	}

	c.t = 65530
	tm.Start()
	c.t = 4
	if got := tm.Elapsed(); got != 10 {
		t.Fatalf("Elapsed across wrap = %d, want 10", got)
	}
}

func TestExpiredContLifecycle(t *testing.T) {
	c := &clock32{t: 1000}
	tm := NewLong(c.src)

	if !tm.ExpiredCont(100) {
		t.Fatal("disarmed timer should be continuously expired")
	}
	tm.Start()
	c.t = 1050
	if tm.ExpiredCont(100) {
		t.Fatal("mid-period should be false")
	}
	c.t = 1100
	if !tm.ExpiredCont(100) {
		t.Fatal("boundary should be true")
	}
	// The first true disarmed it, so it stays true until re-armed.
	if !tm.ExpiredCont(100) {
		t.Fatal("should remain true after expiry until next Start")
	}
	tm.Start()
	if tm.ExpiredCont(100) {
		t.Fatal("re-armed timer should be false again")
	}
}

func TestRestartReanchors(t *testing.T) {
	c := &clock16{t: 100}
	tm := NewShort(c.src)
	tm.Start()
	c.t = 140
	tm.Start() // re-anchor at 140
	c.t = 179
	if tm.Expired(40) {
		t.Fatal("restart should reset the anchor")
	}
	c.t = 180
	if !tm.Expired(40) {
		t.Fatal("period should count from the latest Start")
	}
}

func TestStockSourcesTick(t *testing.T) {
	// Smoke only: widths and callability.
	var _ Source[uint32] = Millis
	var _ Source[uint16] = Millis16
	a := Millis()
	b := Millis()
	if b-a > 1000 {
		t.Fatalf("Millis jumped by %d within one test", b-a)
	}
}
