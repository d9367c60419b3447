// Package config publishes the compiled-in defaults for a build target as
// retained messages, one per topic, so every service finds its settings on
// its first subscribe. Later publishers (console, bridge downlink) overwrite
// individual topics the same way.
package config

import (
	"context"

	"printcore-go/bus"
	"printcore-go/errcode"
)

// Entry pairs a config topic with its retained default payload.
type Entry struct {
	Topic   bus.Topic
	Payload any
}

// Profile is the default set for one build target.
type Profile []Entry

// Lookup resolves the defaults for a build target. Tests may override it.
var Lookup = func(device string) (Profile, bool) {
	p, ok := profiles[device]
	return p, ok
}

type Service struct {
	Device string
}

func New(device string) *Service {
	return &Service{Device: device}
}

// publish pushes every entry of the device profile as a retained message.
func (s *Service) publish(conn *bus.Connection) error {
	prof, ok := Lookup(s.Device)
	if !ok {
		return &errcode.E{C: errcode.Config, Op: "config.Start",
			Msg: "no defaults for device " + s.Device}
	}
	for _, e := range prof {
		conn.Publish(conn.NewMessage(e.Topic, e.Payload, true))
	}
	return nil
}

// Start publishes the retained defaults and returns. An unknown device is a
// startup failure; the caller decides whether to halt.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	return s.publish(conn)
}
