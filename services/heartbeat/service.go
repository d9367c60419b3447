// Package heartbeat publishes a retained liveness beat on printer/heartbeat.
// The cadence is a software timer polled from a coarse ticker, so the same
// loop runs on hardware (where the poll is the scheduler granularity) and on
// the host. config/heartbeat retunes or disables the beat at runtime.
package heartbeat

import (
	"context"
	"time"

	"printcore-go/bus"
	"printcore-go/timer"
	"printcore-go/types"
)

var (
	topicConfig = bus.T("config", "heartbeat")
	topicBeat   = bus.T("printer", "heartbeat")
)

const (
	defaultIntervalMs = 1000
	defaultPoll       = 100 * time.Millisecond
)

type Service struct {
	IntervalMs uint32        // initial beat interval; 0 takes the default
	Poll       time.Duration // timer poll granularity; 0 takes the default
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(cfgSub)

	interval := s.IntervalMs
	if interval == 0 {
		interval = defaultIntervalMs
	}
	poll := s.Poll
	if poll <= 0 {
		poll = defaultPoll
	}

	beat := timer.NewLong(timer.Millis)
	beat.Start()

	var seq uint32
	started := time.Now()

	tick := time.NewTicker(poll)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: heartbeat service stopping")
			return
		case <-tick.C:
			if interval == 0 || !beat.ExpiredCont(interval) {
				continue
			}
			seq++
			hb := types.Heartbeat{
				Seq:      seq,
				UptimeMs: uint32(time.Since(started).Milliseconds()),
				TS:       time.Now().UnixMilli(),
			}
			conn.Publish(conn.NewMessage(topicBeat, hb, true))
			beat.Start()
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			cfg, ok := msg.Payload.(types.HeartbeatConfig)
			if !ok {
				println("Error: heartbeat: unexpected config payload")
				continue
			}
			interval = cfg.IntervalMs
			if interval == 0 {
				println("Info: heartbeat disabled")
				continue
			}
			beat.Start()
			println("Info: heartbeat interval set to", interval, "ms")
		}
	}
}

// Start launches the heartbeat loop.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
