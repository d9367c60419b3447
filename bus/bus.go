// Package bus is the in-process publish/subscribe fabric connecting firmware
// services: diagnostics, configuration, control requests and their replies
// all travel as Messages over hierarchical Topics.
//
// Delivery is per-subscription buffered and never blocks a publisher: when a
// subscriber's queue is full the oldest message is dropped to admit the
// newest. Retained messages are stored per topic and replayed to any later
// subscription whose pattern matches. Subscription patterns support MQTT
// style wildcards: a single-level token ("+") and a multi-level tail ("#",
// matching zero or more remaining levels).
package bus

import (
	"context"
	"sync"
	"sync/atomic"

	"printcore-go/errcode"
	"printcore-go/x/mathx"
	"printcore-go/x/strconvx"
)

// Topic is a hierarchy of string levels.
type Topic []string

// T builds a Topic from its levels.
func T(parts ...string) Topic { return Topic(parts) }

// String joins the levels with '/'.
func (t Topic) String() string {
	s := ""
	for i, p := range t {
		if i > 0 {
			s += "/"
		}
		s += p
	}
	return s
}

// Equal reports level-wise equality.
func (t Topic) Equal(o Topic) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

// Message is one bus datagram. Payload is an arbitrary value; services agree
// on concrete types per topic. ReplyTo, when set, names the topic the
// receiver should answer on.
type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
	From     string
}

type node struct {
	children map[string]*node
	subs     map[*Subscription]struct{}
}

func newNode() *node {
	return &node{children: map[string]*node{}, subs: map[*Subscription]struct{}{}}
}

// Bus owns the subscription trie and the retained store.
type Bus struct {
	mu       sync.Mutex
	depth    int
	single   string
	multi    string
	root     *node
	retained map[string]*Message
	replySeq atomic.Uint32
}

// NewBus creates a bus whose subscriptions buffer up to depth messages.
// Optional wildcard overrides: first the single-level token, then the
// multi-level token (defaults "+" and "#").
func NewBus(depth int, wildcards ...string) *Bus {
	b := &Bus{
		depth:    mathx.Clamp(depth, 1, 1024),
		single:   "+",
		multi:    "#",
		root:     newNode(),
		retained: map[string]*Message{},
	}
	if len(wildcards) > 0 && wildcards[0] != "" {
		b.single = wildcards[0]
	}
	if len(wildcards) > 1 && wildcards[1] != "" {
		b.multi = wildcards[1]
	}
	return b
}

// NewMessage builds a message without a sender name.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// NewConnection registers a named participant.
func (b *Bus) NewConnection(name string) *Connection {
	return &Connection{bus: b, name: name, subs: map[*Subscription]struct{}{}}
}

// Connection is one participant's handle: it tracks the participant's
// subscriptions so Disconnect can release them all.
type Connection struct {
	bus  *Bus
	name string
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Name returns the participant name given to NewConnection.
func (c *Connection) Name() string { return c.name }

// NewMessage builds a message stamped with this connection's name.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained, From: c.name}
}

// Subscription is one pattern's delivery queue.
type Subscription struct {
	topic  Topic
	ch     chan *Message
	conn   *Connection
	closed bool
}

// Channel returns the delivery queue. It is closed by Unsubscribe and
// Disconnect.
func (s *Subscription) Channel() <-chan *Message { return s.ch }

// Topic returns the subscribed pattern.
func (s *Subscription) Topic() Topic { return s.topic }

// Subscribe registers a pattern (wildcards allowed) and replays any retained
// messages it matches.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{topic: topic, ch: make(chan *Message, c.bus.depth), conn: c}

	b := c.bus
	b.mu.Lock()
	n := b.root
	for _, part := range topic {
		child, ok := n.children[part]
		if !ok {
			child = newNode()
			n.children[part] = child
		}
		n = child
	}
	n.subs[sub] = struct{}{}
	for _, m := range b.retained {
		if b.matches(topic, m.Topic) {
			deliver(sub, m)
		}
	}
	b.mu.Unlock()

	c.mu.Lock()
	c.subs[sub] = struct{}{}
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (c *Connection) Unsubscribe(sub *Subscription) {
	if sub == nil || sub.conn != c {
		return
	}
	c.mu.Lock()
	delete(c.subs, sub)
	c.mu.Unlock()

	b := c.bus
	b.mu.Lock()
	if !sub.closed {
		n := b.root
		for _, part := range sub.topic {
			child, ok := n.children[part]
			if !ok {
				n = nil
				break
			}
			n = child
		}
		if n != nil {
			delete(n.subs, sub)
		}
		sub.closed = true
		close(sub.ch)
	}
	b.mu.Unlock()
}

// Disconnect releases every subscription held by this connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := make([]*Subscription, 0, len(c.subs))
	for s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()
	for _, s := range subs {
		c.Unsubscribe(s)
	}
}

// Publish delivers msg to every matching subscription. A retained message is
// also stored for later subscribers; a retained message with a nil payload
// clears the stored entry instead.
func (c *Connection) Publish(msg *Message) {
	if msg == nil || len(msg.Topic) == 0 {
		return
	}
	b := c.bus
	b.mu.Lock()
	if msg.Retained {
		key := msg.Topic.String()
		if msg.Payload == nil {
			delete(b.retained, key)
		} else {
			b.retained[key] = msg
		}
	}
	b.collect(b.root, msg.Topic, msg)
	b.mu.Unlock()
}

// collect walks the trie delivering msg to matching subscriptions. Sends
// happen under the bus lock and are non-blocking, so a send can never race
// a channel close.
func (b *Bus) collect(n *node, parts Topic, msg *Message) {
	if n == nil {
		return
	}
	if mc, ok := n.children[b.multi]; ok {
		for s := range mc.subs {
			deliver(s, msg)
		}
	}
	if len(parts) == 0 {
		for s := range n.subs {
			deliver(s, msg)
		}
		return
	}
	b.collect(n.children[parts[0]], parts[1:], msg)
	b.collect(n.children[b.single], parts[1:], msg)
}

// matches reports whether pattern accepts topic.
func (b *Bus) matches(pattern, topic Topic) bool {
	i := 0
	for ; i < len(pattern); i++ {
		p := pattern[i]
		if p == b.multi {
			return true
		}
		if i >= len(topic) {
			return false
		}
		if p != b.single && p != topic[i] {
			return false
		}
	}
	return i == len(topic)
}

// deliver enqueues without blocking: on a full queue the oldest entry is
// dropped so the newest wins.
func deliver(sub *Subscription, msg *Message) {
	if sub.closed {
		return
	}
	select {
	case sub.ch <- msg:
	default:
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

// ---- Request / reply ----

// Request assigns a unique ReplyTo to req (unless the caller set one),
// subscribes to it and publishes the request. The caller owns the returned
// subscription and must Unsubscribe it.
func (c *Connection) Request(req *Message) *Subscription {
	if len(req.ReplyTo) == 0 {
		seq := c.bus.replySeq.Add(1)
		req.ReplyTo = Topic{"$reply", c.name, strconvx.Itoa(int(seq))}
	}
	sub := c.Subscribe(req.ReplyTo)
	c.Publish(req)
	return sub
}

// RequestWait performs Request and blocks for the first reply or ctx expiry.
func (c *Connection) RequestWait(ctx context.Context, req *Message) (*Message, error) {
	sub := c.Request(req)
	defer c.Unsubscribe(sub)
	select {
	case m, ok := <-sub.ch:
		if !ok {
			return nil, &errcode.E{C: errcode.Closed, Op: "bus.RequestWait"}
		}
		return m, nil
	case <-ctx.Done():
		return nil, &errcode.E{C: errcode.Timeout, Op: "bus.RequestWait", Err: ctx.Err()}
	}
}

// Reply answers a request on its ReplyTo topic. No-op when the request did
// not ask for a reply.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if req == nil || len(req.ReplyTo) == 0 {
		return
	}
	c.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained, From: c.name})
}
