//go:build !tinygo

// cmd/printsh is an interactive console around a virtual printer: a loopback
// serial port, the command queue and the full service set on a local bus.
// Useful for poking at the calibration flow without hardware. With -broker
// it also runs the MQTT bridge against a real broker.
//
//	printsh                    interactive shell
//	printsh -e cal 0.25        one-shot evaluation
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"printcore-go/bus"
	"printcore-go/cmdq"
	"printcore-go/gcode"
	"printcore-go/lay1cal"
	"printcore-go/serial"
	"printcore-go/services/bridge"
	"printcore-go/services/config"
	"printcore-go/services/diag"
	"printcore-go/services/firstlayer"
	"printcore-go/services/heartbeat"
	"printcore-go/types"
)

var (
	evalOnly = flag.Bool("e", false, "evaluation only, no interactive shell")
	mmu      = flag.Bool("mmu", false, "emulate a multi-material unit")
	broker   = flag.String("broker", "", "MQTT broker URL; empty disables the bridge")
)

var (
	topicCalRun   = bus.T("cal", "first_layer", "run")
	topicCalState = bus.T("cal", "first_layer", "state")
)

// printer bundles the virtual hardware the commands operate on.
type printer struct {
	ui   *bus.Connection
	wire *serial.Loopback
	port *serial.Port
	q    *cmdq.Queue
}

func startPrinter(ctx context.Context) (*printer, error) {
	wire := serial.NewLoopback()
	port, err := serial.Open(wire, serial.Config{RxBuf: 64})
	if err != nil {
		return nil, err
	}

	q := cmdq.New(512)
	go func() {
		if err := q.Run(ctx, port); err != nil && ctx.Err() == nil {
			glog.Errorf("transmit worker: %v", err)
		}
	}()

	b := bus.NewBus(64)
	if err := config.New("host").Start(ctx, b.NewConnection("config")); err != nil {
		return nil, err
	}
	if err := (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat")); err != nil {
		return nil, err
	}
	if err := diag.New("lo", port).Start(ctx, b.NewConnection("diag")); err != nil {
		return nil, err
	}
	if err := firstlayer.New(q, *mmu).Start(ctx, b.NewConnection("firstlayer")); err != nil {
		return nil, err
	}
	if *broker != "" {
		opts := bridge.Options{Server: *broker, Enq: q}
		if err := bridge.New(opts).Start(ctx, b.NewConnection("bridge")); err != nil {
			return nil, err
		}
		glog.Infof("bridge enabled: %s", *broker)
	}

	return &printer{
		ui:   b.NewConnection("console"),
		wire: wire,
		port: port,
		q:    q,
	}, nil
}

// sentLines splits everything written to the wire into commands.
func (p *printer) sentLines() []string {
	raw := strings.TrimRight(string(p.wire.Sent()), "\n")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := startPrinter(ctx)
	if err != nil {
		log.Fatalln(err)
	}
	defer p.port.Close()

	shell := ishell.New()
	shell.Println("virtual printer ready")
	shell.SetPrompt("printer> ")

	shell.AddCmd(&ishell.Cmd{
		Name:    "cal",
		Aliases: []string{"calibrate"},
		Help:    "[layer_height [extrusion_width]] queue the first-layer calibration print",
		Func: func(c *ishell.Context) {
			run := types.CalibrationRun{Filament: lay1cal.FilamentNone}
			if len(c.Args) > 0 {
				v, err := strconv.ParseFloat(c.Args[0], 64)
				if err != nil {
					c.Err(err)
					return
				}
				run.LayerHeight = v
			}
			if len(c.Args) > 1 {
				v, err := strconv.ParseFloat(c.Args[1], 64)
				if err != nil {
					c.Err(err)
					return
				}
				run.ExtrusionWidth = v
			}

			rctx, done := context.WithTimeout(ctx, 2*time.Second)
			defer done()
			rep, err := p.ui.RequestWait(rctx, p.ui.NewMessage(topicCalRun, run, false))
			if err != nil {
				c.Err(err)
				return
			}
			switch v := rep.Payload.(type) {
			case types.OKReply:
				c.Println("queued")
			case types.ErrorReply:
				c.Err(errors.New(v.Error))
			default:
				c.Printf("%v\n", v)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "send",
		Help: "COMMAND... enqueue a raw g-code command",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("command expected"))
				return
			}
			if err := p.q.Enqueue(strings.Join(c.Args, " ")); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "stats",
		Help: "wire and queue counters",
		Func: func(c *ishell.Context) {
			st := p.port.Stats()
			c.Printf("wire: tx=%d rx=%d dropped=%d\n", st.TxBytes, st.RxBytes, st.Dropped)
			c.Printf("queue: %d pending\n", p.q.Len())
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "state",
		Help: "last calibration state",
		Func: func(c *ishell.Context) {
			sub := p.ui.Subscribe(topicCalState)
			defer p.ui.Unsubscribe(sub)
			select {
			case m := <-sub.Channel():
				st, ok := m.Payload.(types.CalibrationState)
				if !ok {
					c.Printf("%v\n", m.Payload)
					return
				}
				if st.Error != "" {
					c.Printf("phase=%s queued=%d error=%s\n", st.Phase, st.Queued, st.Error)
					return
				}
				c.Printf("phase=%s queued=%d\n", st.Phase, st.Queued)
			case <-time.After(300 * time.Millisecond):
				c.Println("no state yet")
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "peek",
		Help: "[n] show the last n commands on the wire (default 10)",
		Func: func(c *ishell.Context) {
			n := 10
			if len(c.Args) > 0 {
				v, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				n = v
			}
			lines := p.sentLines()
			if len(lines) > n {
				lines = lines[len(lines)-n:]
			}
			for _, ln := range lines {
				c.Println(ln)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "trace",
		Help: "replay the wire through the motion tracer",
		Func: func(c *ishell.Context) {
			tr := gcode.NewTracer()
			if err := tr.ExecAll(p.sentLines()); err != nil {
				c.Err(err)
				return
			}
			extruding, travel := 0, 0
			for _, s := range tr.Segments() {
				if s.Extruding() {
					extruding++
				} else {
					travel++
				}
			}
			x, y, z := tr.Position()
			c.Printf("segments: %d extruding, %d travel/retract\n", extruding, travel)
			c.Printf("head at X%.2f Y%.2f Z%.2f, feed %.0f\n", x, y, z, tr.Feed())
		},
	})

	if *evalOnly {
		if len(flag.Args()) == 0 {
			log.Fatalln("command expected with -e")
		}
		if err := shell.Process(flag.Args()...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	shell.Run()
}
