//go:build !tinygo

// Package bridge mirrors the local bus onto an MQTT broker.
//
// Uplink: diag/#, printer/# and cal/# are JSON-encoded and republished under
// a topic prefix. Downlink: <prefix>/cal/first_layer/run feeds the local bus
// and <prefix>/gcode/send feeds the command queue. The run topic is never
// uplinked: commands flow down, telemetry flows up, so a broker echo cannot
// re-trigger a print.
package bridge

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"printcore-go/bus"
	"printcore-go/cmdq"
	"printcore-go/errcode"
	"printcore-go/types"
)

const (
	defaultPrefix     = "printcore"
	connectTimeout    = 5 * time.Second
	connectWait       = 10 * time.Second
	disconnectQuiesce = 250 // paho quiesce, milliseconds
)

var (
	topicState  = bus.T("bridge", "state")
	topicCalRun = bus.T("cal", "first_layer", "run")
)

type Options struct {
	Server      string // broker URL, e.g. tcp://localhost:1883
	TopicPrefix string // remote prefix; "printcore" when empty
	ClientID    string // derived from the machine id when empty
	QoS         byte
	Enq         cmdq.Enqueuer // optional sink for <prefix>/gcode/send
}

func (o Options) withDefaults() Options {
	if o.TopicPrefix == "" {
		o.TopicPrefix = defaultPrefix
	}
	if o.ClientID == "" {
		if id, err := machineid.ProtectedID(defaultPrefix); err == nil && len(id) >= 8 {
			o.ClientID = defaultPrefix + "-" + id[:8]
		} else {
			o.ClientID = defaultPrefix
		}
	}
	return o
}

// client is the slice of paho.Client the bridge uses. Tests substitute it
// via newClient.
type client interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newClient = func(o *paho.ClientOptions) client { return paho.NewClient(o) }

type Service struct {
	opts   Options
	name   string // local bus connection name, skipped on uplink
	client client
	up     atomic.Bool
}

func New(opts Options) *Service {
	return &Service{opts: opts.withDefaults()}
}

// Start validates the options, arms the MQTT client and launches the
// supervision loop.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.opts.Server == "" {
		return &errcode.E{C: errcode.Config, Op: "bridge.Start", Msg: "broker server required"}
	}
	s.name = conn.Name()

	copts := paho.NewClientOptions()
	copts.AddBroker(s.opts.Server).
		SetClientID(s.opts.ClientID).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectTimeout(connectTimeout)
	copts.SetOnConnectHandler(func(_ paho.Client) {
		glog.Infof("bridge: connected to %s as %s", s.opts.Server, s.opts.ClientID)
		s.up.Store(true)
		s.subscribeDownlink(conn)
		s.publishLink(conn, types.LinkUp)
	})
	copts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		glog.Warningf("bridge: connection lost: %v", err)
		s.up.Store(false)
		s.publishLink(conn, types.LinkDown)
	})
	s.client = newClient(copts)

	go s.run(ctx, conn)
	return nil
}

// run dials until the first connect succeeds (paho reconnects on its own
// afterwards), then pumps the uplink until ctx ends.
func (s *Service) run(ctx context.Context, conn *bus.Connection) {
	s.publishLink(conn, types.LinkDown)

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		tok := s.client.Connect()
		if tok.WaitTimeout(connectWait) && tok.Error() == nil {
			break
		}
		delay := backoff()
		glog.Warningf("bridge: connect to %s failed: %v (retry in %s)",
			s.opts.Server, tok.Error(), delay)
		if !sleep(ctx, delay) {
			return
		}
	}
	defer s.client.Disconnect(disconnectQuiesce)
	defer s.publishLink(conn, types.LinkDown)

	s.uplink(ctx, conn)
}

// uplink forwards local telemetry to the broker. Subscribing replays
// retained snapshots, which primes the remote side after every start.
func (s *Service) uplink(ctx context.Context, conn *bus.Connection) {
	diagSub := conn.Subscribe(bus.T("diag", "#"))
	printerSub := conn.Subscribe(bus.T("printer", "#"))
	calSub := conn.Subscribe(bus.T("cal", "#"))
	defer conn.Unsubscribe(diagSub)
	defer conn.Unsubscribe(printerSub)
	defer conn.Unsubscribe(calSub)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-diagSub.Channel():
			if !ok {
				return
			}
			s.forward(msg)
		case msg, ok := <-printerSub.Channel():
			if !ok {
				return
			}
			s.forward(msg)
		case msg, ok := <-calSub.Channel():
			if !ok {
				return
			}
			s.forward(msg)
		}
	}
}

func (s *Service) forward(msg *bus.Message) {
	if msg.From == s.name || msg.Topic.Equal(topicCalRun) {
		return
	}
	if !s.up.Load() {
		return // retained snapshots resync the remote on reconnect
	}
	b, err := json.Marshal(msg.Payload)
	if err != nil {
		glog.Warningf("bridge: drop %s: %v", msg.Topic.String(), err)
		return
	}
	remote := s.opts.TopicPrefix + "/" + msg.Topic.String()
	if glog.V(2) {
		glog.Infof("PUB %q (%d bytes)", remote, len(b))
	}
	s.client.Publish(remote, s.opts.QoS, msg.Retained, b)
}

func (s *Service) subscribeDownlink(conn *bus.Connection) {
	run := s.opts.TopicPrefix + "/cal/first_layer/run"
	s.client.Subscribe(run, s.opts.QoS, func(_ paho.Client, m paho.Message) {
		glog.V(2).Infof("RCV %q", m.Topic())
		s.handleRun(conn, m.Payload())
	})

	gcode := s.opts.TopicPrefix + "/gcode/send"
	s.client.Subscribe(gcode, s.opts.QoS, func(_ paho.Client, m paho.Message) {
		glog.V(2).Infof("RCV %q", m.Topic())
		s.handleGcode(m.Payload())
	})
}

func (s *Service) handleRun(conn *bus.Connection, payload []byte) {
	var run types.CalibrationRun
	if err := json.Unmarshal(payload, &run); err != nil {
		glog.Warningf("bridge: bad run payload: %v", err)
		return
	}
	conn.Publish(conn.NewMessage(topicCalRun, run, false))
}

func (s *Service) handleGcode(payload []byte) {
	if s.opts.Enq == nil {
		glog.Warning("bridge: gcode received but no queue attached")
		return
	}
	for _, line := range strings.Split(string(payload), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := s.opts.Enq.Enqueue(line); err != nil {
			glog.Warningf("bridge: gcode dropped: %v", err)
			return
		}
	}
}

func (s *Service) publishLink(conn *bus.Connection, link types.Link) {
	st := types.BridgeState{Link: link, Broker: s.opts.Server, TS: time.Now().UnixMilli()}
	conn.Publish(conn.NewMessage(topicState, st, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
