package firstlayer

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"printcore-go/bus"
	"printcore-go/cmdq"
	"printcore-go/errcode"
	"printcore-go/types"
)

func waitPhase(t *testing.T, sub *bus.Subscription, phase string) types.CalibrationState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-sub.Channel():
			st, ok := m.Payload.(types.CalibrationState)
			if !ok {
				t.Fatalf("payload = %#v, want CalibrationState", m.Payload)
			}
			if st.Phase == phase {
				return st
			}
		case <-deadline:
			t.Fatalf("state %q never arrived", phase)
		}
	}
}

func countOf(cmds []string, cmd string) int {
	n := 0
	for _, c := range cmds {
		if c == cmd {
			n++
		}
	}
	return n
}

func TestRunQueuesAndDrains(t *testing.T) {
	b := bus.NewBus(32)
	conn := b.NewConnection("test-firstlayer")
	stateSub := conn.Subscribe(topicState)
	defer conn.Unsubscribe(stateSub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := cmdq.New(256)
	if err := New(q, false).Start(ctx, conn); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitPhase(t, stateSub, types.PhaseIdle)

	conn.Publish(conn.NewMessage(topicRun, types.CalibrationRun{}, false))

	st := waitPhase(t, stateSub, types.PhaseRunning)
	if st.Queued != 104 {
		t.Fatalf("queued = %d, want 104", st.Queued)
	}
	if q.Len() != 104 {
		t.Fatalf("queue depth = %d, want 104", q.Len())
	}

	// No transmit worker yet, so the print must still count as running.
	select {
	case m := <-stateSub.Channel():
		t.Fatalf("unexpected state while queue is full: %#v", m.Payload)
	case <-time.After(120 * time.Millisecond):
	}

	go q.Run(ctx, io.Discard)

	st = waitPhase(t, stateSub, types.PhaseDone)
	if st.Queued != 104 {
		t.Fatalf("done queued = %d, want 104", st.Queued)
	}
}

func TestBusyWhileDraining(t *testing.T) {
	b := bus.NewBus(32)
	conn := b.NewConnection("test-firstlayer-busy")
	stateSub := conn.Subscribe(topicState)
	defer conn.Unsubscribe(stateSub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := cmdq.New(256)
	if err := New(q, false).Start(ctx, conn); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn.Publish(conn.NewMessage(topicRun, types.CalibrationRun{}, false))
	waitPhase(t, stateSub, types.PhaseRunning)

	// Nothing drains the queue, so a second request must bounce.
	reqConn := b.NewConnection("test-firstlayer-requester")
	reqCtx, done := context.WithTimeout(ctx, time.Second)
	defer done()
	rep, err := reqConn.RequestWait(reqCtx,
		reqConn.NewMessage(topicRun, types.CalibrationRun{}, false))
	if err != nil {
		t.Fatalf("RequestWait: %v", err)
	}
	er, ok := rep.Payload.(types.ErrorReply)
	if !ok {
		t.Fatalf("reply payload = %#v, want ErrorReply", rep.Payload)
	}
	if !strings.Contains(er.Error, "busy") {
		t.Fatalf("reply error = %q, want busy", er.Error)
	}
}

func TestQueueOverflowReportsError(t *testing.T) {
	b := bus.NewBus(32)
	conn := b.NewConnection("test-firstlayer-overflow")
	stateSub := conn.Subscribe(topicState)
	defer conn.Unsubscribe(stateSub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := cmdq.New(8) // far too small for a full print
	if err := New(q, false).Start(ctx, conn); err != nil {
		t.Fatalf("Start: %v", err)
	}

	reqConn := b.NewConnection("test-firstlayer-overflow-req")
	reqCtx, done := context.WithTimeout(ctx, time.Second)
	defer done()
	rep, err := reqConn.RequestWait(reqCtx,
		reqConn.NewMessage(topicRun, types.CalibrationRun{}, false))
	if err != nil {
		t.Fatalf("RequestWait: %v", err)
	}
	er, ok := rep.Payload.(types.ErrorReply)
	if !ok {
		t.Fatalf("reply payload = %#v, want ErrorReply", rep.Payload)
	}
	if !strings.Contains(er.Error, "queue_full") {
		t.Fatalf("reply error = %q, want queue_full", er.Error)
	}

	st := waitPhase(t, stateSub, types.PhaseError)
	if st.Queued != 8 {
		t.Fatalf("queued = %d, want 8", st.Queued)
	}
	if !strings.Contains(st.Error, "queue_full") {
		t.Fatalf("state error = %q, want queue_full", st.Error)
	}
}

func TestMMUKeepsLoadedSlot(t *testing.T) {
	b := bus.NewBus(32)
	conn := b.NewConnection("test-firstlayer-mmu")
	stateSub := conn.Subscribe(topicState)
	defer conn.Unsubscribe(stateSub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &cmdq.Recorder{}
	if err := New(rec, true).Start(ctx, conn); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Recorder has no depth, so each run completes as soon as it is queued.
	conn.Publish(conn.NewMessage(topicRun, types.CalibrationRun{Filament: 2}, false))
	waitPhase(t, stateSub, types.PhaseDone)
	if n := countOf(rec.Cmds, "T2"); n != 1 {
		t.Fatalf("toolchanges after first run = %d, want 1", n)
	}

	// Same slot again: already loaded, no second toolchange.
	conn.Publish(conn.NewMessage(topicRun, types.CalibrationRun{Filament: 2}, false))
	waitPhase(t, stateSub, types.PhaseDone)
	if n := countOf(rec.Cmds, "T2"); n != 1 {
		t.Fatalf("toolchanges after second run = %d, want 1", n)
	}
	// Finish unloads every run on multi-material.
	if n := countOf(rec.Cmds, "M702"); n != 2 {
		t.Fatalf("unloads = %d, want 2", n)
	}
}

func TestBadPayloadRejected(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("test-firstlayer-bad")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := New(&cmdq.Recorder{}, false).Start(ctx, conn); err != nil {
		t.Fatalf("Start: %v", err)
	}

	reqConn := b.NewConnection("test-firstlayer-bad-req")
	reqCtx, done := context.WithTimeout(ctx, time.Second)
	defer done()
	rep, err := reqConn.RequestWait(reqCtx, reqConn.NewMessage(topicRun, "not a run", false))
	if err != nil {
		t.Fatalf("RequestWait: %v", err)
	}
	er, ok := rep.Payload.(types.ErrorReply)
	if !ok {
		t.Fatalf("reply payload = %#v, want ErrorReply", rep.Payload)
	}
	if !strings.Contains(er.Error, "bad run payload") {
		t.Fatalf("reply error = %q", er.Error)
	}
}

func TestStartRequiresQueue(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-firstlayer-noq")

	err := New(nil, false).Start(context.Background(), conn)
	if !errcode.Is(err, errcode.Config) {
		t.Fatalf("err = %v, want config code", err)
	}
}
