package main

import (
	"context"
	"time"

	"printcore-go/bus"
	"printcore-go/services/config"
	"printcore-go/services/heartbeat"
	"printcore-go/types"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	ctx := context.Background()
	b := bus.NewBus(8, "+", "#")

	if err := config.New("host").Start(ctx, b.NewConnection("config")); err != nil {
		println("Error: config:", err.Error())
		return
	}
	if err := (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat")); err != nil {
		println("Error: heartbeat:", err.Error())
		return
	}

	sub := b.NewConnection("main").Subscribe(bus.T("printer", "heartbeat"))
	for m := range sub.Channel() {
		beat, ok := m.Payload.(types.Heartbeat)
		if !ok {
			continue
		}
		println("Heartbeat", beat.Seq, "uptime", beat.UptimeMs, "ms")
	}
}
