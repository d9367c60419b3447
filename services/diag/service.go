// Package diag watches a serial port and turns its counters into bus
// traffic: overflow events become diag/serial/<port>/overflow messages (plus
// the one-line console diagnostic), and a retained stats snapshot is
// refreshed on a period at diag/serial/<port>/stats.
package diag

import (
	"context"
	"time"

	"printcore-go/bus"
	"printcore-go/errcode"
	"printcore-go/serial"
	"printcore-go/types"
)

const defaultStatsInterval = 5 * time.Second

type Service struct {
	Name string       // topic segment naming the port, e.g. "uart0"
	Port *serial.Port

	StatsInterval time.Duration // 0 takes the default
}

func New(name string, p *serial.Port) *Service {
	return &Service{Name: name, Port: p}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	topicOverflow := bus.T("diag", "serial", s.Name, "overflow")
	topicStats := bus.T("diag", "serial", s.Name, "stats")

	iv := s.StatsInterval
	if iv <= 0 {
		iv = defaultStatsInterval
	}
	tick := time.NewTicker(iv)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: diag service stopping")
			return
		case ev := <-s.Port.Events():
			println("Error: serial", s.Name, "rx overflow, dropped:", ev.Dropped)
			conn.Publish(conn.NewMessage(topicOverflow, types.SerialOverflow{
				Dropped: ev.Dropped,
				TS:      time.Now().UnixMilli(),
			}, false))
		case <-tick.C:
			st := s.Port.Stats()
			conn.Publish(conn.NewMessage(topicStats, types.SerialStats{
				RxBytes: st.RxBytes,
				TxBytes: st.TxBytes,
				Dropped: st.Dropped,
			}, true))
		}
	}
}

// Start launches the watcher. The port must already be open.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.Port == nil {
		return &errcode.E{C: errcode.Config, Op: "diag.Start", Msg: "port required"}
	}
	if s.Name == "" {
		return &errcode.E{C: errcode.Config, Op: "diag.Start", Msg: "port name required"}
	}
	go s.serviceLoop(ctx, conn)
	return nil
}
