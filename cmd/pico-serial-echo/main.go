//go:build rp2040 || rp2350

// cmd/pico-serial-echo exercises the serial port on real silicon: every byte
// received on UART0 is written straight back, and overflow events plus byte
// counters go to the USB console. Wire GP0/GP1 to a host adapter and type at
// it.
package main

import (
	"time"

	"printcore-go/serial"
	"printcore-go/timer"
)

func main() {
	// Allow USB CDC to enumerate before the first println.
	time.Sleep(1500 * time.Millisecond)
	println("[echo] boot")

	port, err := serial.Open(serial.NewUART(serial.UART0), serial.Config{
		Baud:  115200,
		RxBuf: 64,
		TX:    0,
		RX:    1,
	})
	if err != nil {
		println("[echo] FAIL: open:", err.Error())
		return
	}

	stats := timer.NewLong(timer.Millis)
	stats.Start()

	buf := make([]byte, 32)
	for {
		// Drain and echo everything buffered.
		for {
			n, _ := port.Read(buf)
			if n == 0 {
				break
			}
			for i := 0; i < n; i++ {
				_ = port.WriteByte(buf[i])
			}
		}

		if stats.ExpiredCont(5000) {
			s := port.Stats()
			println("[echo] rx=", s.RxBytes, " tx=", s.TxBytes, " dropped=", s.Dropped)
			stats.Start()
		}

		select {
		case <-port.Readable():
		case ev := <-port.Events():
			println("[echo] rx overflow, dropped:", ev.Dropped)
		case <-time.After(250 * time.Millisecond):
		}
	}
}
