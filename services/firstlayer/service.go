// Package firstlayer runs the first-layer calibration print on request.
// A cal/first_layer/run message queues the whole g-code sequence onto the
// shared command queue; progress is mirrored as a retained snapshot at
// cal/first_layer/state. One run at a time: a request arriving while the
// queue still drains is answered busy.
package firstlayer

import (
	"context"
	"time"

	"printcore-go/bus"
	"printcore-go/cmdq"
	"printcore-go/errcode"
	"printcore-go/lay1cal"
	"printcore-go/types"
)

var (
	topicRun   = bus.T("cal", "first_layer", "run")
	topicState = bus.T("cal", "first_layer", "state")
)

// drainPoll is how often a running print is checked for queue drain.
const drainPoll = 50 * time.Millisecond

type Service struct {
	Q   cmdq.Enqueuer
	MMU bool

	current int // loaded slot, lay1cal.FilamentNone when unknown
}

func New(q cmdq.Enqueuer, mmu bool) *Service {
	return &Service{Q: q, MMU: mmu, current: lay1cal.FilamentNone}
}

// countingEnqueuer tracks how many commands reached the queue.
type countingEnqueuer struct {
	q cmdq.Enqueuer
	n int
}

func (c *countingEnqueuer) Enqueue(cmd string) error {
	if err := c.q.Enqueue(cmd); err != nil {
		return err
	}
	c.n++
	return nil
}

func decodeRun(p any) (types.CalibrationRun, bool) {
	switch v := p.(type) {
	case types.CalibrationRun:
		return v, true
	case *types.CalibrationRun:
		if v != nil {
			return *v, true
		}
	}
	return types.CalibrationRun{}, false
}

func (s *Service) publishState(conn *bus.Connection, phase string, queued int, err error) {
	st := types.CalibrationState{Phase: phase, Queued: queued, TS: time.Now().UnixMilli()}
	if err != nil {
		st.Error = err.Error()
	}
	conn.Publish(conn.NewMessage(topicState, st, true))
}

func reply(conn *bus.Connection, req *bus.Message, err error) {
	if len(req.ReplyTo) == 0 {
		return
	}
	if err != nil {
		conn.Reply(req, types.ErrorReply{Error: err.Error()}, false)
		return
	}
	conn.Reply(req, types.OKReply{OK: true}, false)
}

// enqueue generates the full print into the queue. The request's ExtraPurge
// forces the long intro purge even when no toolchange happened.
func (s *Service) enqueue(run types.CalibrationRun) (int, error) {
	ce := &countingEnqueuer{q: s.Q}
	seq := lay1cal.NewSequence(ce, lay1cal.Params{
		LayerHeight:    run.LayerHeight,
		ExtrusionWidth: run.ExtrusionWidth,
		FilamentDiam:   run.FilamentDiam,
	}, s.MMU)

	filament := run.Filament
	if filament < 0 {
		filament = lay1cal.FilamentNone
	}

	seq.WaitPreheat()
	extra := seq.LoadFilament(filament, s.current)
	if run.ExtraPurge {
		extra = true
	}
	seq.IntroLine(extra)
	seq.BeforeMeander()
	seq.MeanderStart()
	seq.Meander()
	for i := 0; i < 4; i++ {
		seq.Square()
	}
	seq.Finish()

	if err := seq.Err(); err != nil {
		return ce.n, err
	}
	if s.MMU && filament != lay1cal.FilamentNone {
		s.current = filament
	}
	return ce.n, nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	runSub := conn.Subscribe(topicRun)
	defer conn.Unsubscribe(runSub)

	// Queue-backed enqueuers report their depth; that is what defines "still
	// printing". Plain sinks complete as soon as generation does.
	depth, _ := s.Q.(interface{ Len() int })

	phase := types.PhaseIdle
	queued := 0
	s.publishState(conn, phase, queued, nil)

	tick := time.NewTicker(drainPoll)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: firstlayer service stopping")
			return
		case <-tick.C:
			if phase != types.PhaseRunning || depth == nil || depth.Len() > 0 {
				continue
			}
			phase = types.PhaseDone
			s.publishState(conn, phase, queued, nil)
			println("Info: calibration print drained,", queued, "commands sent")
		case msg, ok := <-runSub.Channel():
			if !ok {
				return
			}
			run, valid := decodeRun(msg.Payload)
			if !valid {
				println("Error: firstlayer: unexpected run payload")
				reply(conn, msg, &errcode.E{C: errcode.Unsupported, Op: "firstlayer",
					Msg: "bad run payload"})
				continue
			}
			if phase == types.PhaseRunning {
				reply(conn, msg, &errcode.E{C: errcode.Busy, Op: "firstlayer",
					Msg: "run in progress"})
				continue
			}

			n, err := s.enqueue(run)
			queued = n
			if err != nil {
				phase = types.PhaseError
				s.publishState(conn, phase, queued, err)
				reply(conn, msg, err)
				println("Error: calibration enqueue failed:", err.Error())
				continue
			}
			phase = types.PhaseRunning
			s.publishState(conn, phase, queued, nil)
			reply(conn, msg, nil)
			println("Info: calibration queued,", queued, "commands")
			if depth == nil {
				phase = types.PhaseDone
				s.publishState(conn, phase, queued, nil)
			}
		}
	}
}

// Start launches the calibration runner.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.Q == nil {
		return &errcode.E{C: errcode.Config, Op: "firstlayer.Start",
			Msg: "command queue required"}
	}
	go s.serviceLoop(ctx, conn)
	return nil
}
