// Package cmdq queues formatted g-code commands between producers (menu
// actions, calibration sequences, the bridge) and whatever drains them to
// the motion controller. Enqueue never blocks; a full queue is reported,
// not waited out.
package cmdq

import (
	"context"
	"io"

	"printcore-go/errcode"
)

// Enqueuer accepts one formatted command. Implementations decide queueing
// and transmission; producers format and hand off.
type Enqueuer interface {
	Enqueue(cmd string) error
}

// Func adapts a function to Enqueuer.
type Func func(cmd string) error

func (f Func) Enqueue(cmd string) error { return f(cmd) }

// Recorder is an Enqueuer that collects commands in order. Used by tests
// and host tools that want the sequence without a transport.
type Recorder struct {
	Cmds []string
}

func (r *Recorder) Enqueue(cmd string) error {
	r.Cmds = append(r.Cmds, cmd)
	return nil
}

func (r *Recorder) Reset() { r.Cmds = r.Cmds[:0] }

// ErrFull reports a queue at capacity. The command was not stored.
var ErrFull error = &errcode.E{C: errcode.QueueFull, Op: "cmdq"}

// Queue is a bounded FIFO of commands. A single Run loop drains it with
// newline framing onto an io.Writer (typically a serial port).
type Queue struct {
	ch chan string
}

func New(depth int) *Queue {
	if depth < 1 {
		depth = 1
	}
	return &Queue{ch: make(chan string, depth)}
}

// Enqueue stores cmd or returns ErrFull immediately.
func (q *Queue) Enqueue(cmd string) error {
	select {
	case q.ch <- cmd:
		return nil
	default:
		return ErrFull
	}
}

// Len reports the number of queued commands.
func (q *Queue) Len() int { return len(q.ch) }

// Run drains the queue onto w, one command per line, until ctx is done.
// A write failure stops the loop and is returned to the caller.
func (q *Queue) Run(ctx context.Context, w io.Writer) error {
	for {
		select {
		case cmd := <-q.ch:
			if _, err := io.WriteString(w, cmd); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
