package heartbeat

import (
	"context"
	"testing"
	"time"

	"printcore-go/bus"
	"printcore-go/types"
)

func collectBeats(t *testing.T, sub *bus.Subscription, n int) []types.Heartbeat {
	t.Helper()
	var beats []types.Heartbeat
	deadline := time.After(2 * time.Second)
	for len(beats) < n {
		select {
		case m := <-sub.Channel():
			hb, ok := m.Payload.(types.Heartbeat)
			if !ok {
				t.Fatalf("payload = %#v, want Heartbeat", m.Payload)
			}
			if !m.Retained {
				t.Fatal("heartbeat must be retained")
			}
			beats = append(beats, hb)
		case <-deadline:
			t.Fatalf("got %d beats, want %d", len(beats), n)
		}
	}
	return beats
}

func TestBeatsAtInterval(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test-heartbeat")
	sub := conn.Subscribe(bus.T("printer", "heartbeat"))
	defer conn.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := &Service{IntervalMs: 30, Poll: 5 * time.Millisecond}
	if err := svc.Start(ctx, conn); err != nil {
		t.Fatalf("Start: %v", err)
	}

	beats := collectBeats(t, sub, 3)
	for i := 1; i < len(beats); i++ {
		if beats[i].Seq != beats[i-1].Seq+1 {
			t.Fatalf("seq not monotonic: %d then %d", beats[i-1].Seq, beats[i].Seq)
		}
	}
}

func TestConfigRetunesInterval(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test-heartbeat-cfg")
	sub := conn.Subscribe(bus.T("printer", "heartbeat"))
	defer conn.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// An hour-scale interval: no beat unless config shortens it.
	svc := &Service{IntervalMs: 3600000, Poll: 5 * time.Millisecond}
	if err := svc.Start(ctx, conn); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected beat before config: %#v", m.Payload)
	case <-time.After(60 * time.Millisecond):
	}

	conn.Publish(conn.NewMessage(bus.T("config", "heartbeat"),
		types.HeartbeatConfig{IntervalMs: 20}, false))

	collectBeats(t, sub, 2)
}

func TestZeroIntervalDisables(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test-heartbeat-off")
	sub := conn.Subscribe(bus.T("printer", "heartbeat"))
	defer conn.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := &Service{IntervalMs: 20, Poll: 5 * time.Millisecond}
	if err := svc.Start(ctx, conn); err != nil {
		t.Fatalf("Start: %v", err)
	}
	collectBeats(t, sub, 1)

	conn.Publish(conn.NewMessage(bus.T("config", "heartbeat"),
		types.HeartbeatConfig{IntervalMs: 0}, false))

	// Let the disable land, drain stragglers, then expect silence.
	time.Sleep(50 * time.Millisecond)
	for len(sub.Channel()) > 0 {
		<-sub.Channel()
	}
	select {
	case m := <-sub.Channel():
		t.Fatalf("beat after disable: %#v", m.Payload)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestStopsOnCancel(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test-heartbeat-stop")
	sub := conn.Subscribe(bus.T("printer", "heartbeat"))
	defer conn.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	svc := &Service{IntervalMs: 10, Poll: 2 * time.Millisecond}
	if err := svc.Start(ctx, conn); err != nil {
		t.Fatalf("Start: %v", err)
	}
	collectBeats(t, sub, 1)
	cancel()

	// Allow the loop to observe the cancel, drain stragglers, expect silence.
	time.Sleep(30 * time.Millisecond)
	for len(sub.Channel()) > 0 {
		<-sub.Channel()
	}
	select {
	case m := <-sub.Channel():
		t.Fatalf("beat after cancel: %#v", m.Payload)
	case <-time.After(80 * time.Millisecond):
	}
}
