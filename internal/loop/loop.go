// Package loop implements the single-threaded cooperative scheduler that
// drives the HTTP listener and the DHCP responder on every tick, mirroring
// the bootloader's own event loop (spec.md §5): no goroutine-per-connection
// model, one iteration pumps the network stack, periodic timers, and DHCP
// before looping again.
package loop

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// Tick is invoked once per loop iteration with the deadline the iteration's
// blocking work (a DHCP read, an Accept poll) should respect.
type Tick func(deadline time.Time) error

// Scheduler runs a fixed set of per-tick callbacks to completion, in
// order, once per iteration, until its context is cancelled.
type Scheduler struct {
	tickInterval time.Duration
	ticks        []namedTick
	log          *slog.Logger
}

type namedTick struct {
	name string
	fn   Tick
}

// New creates a Scheduler that runs each registered tick once every
// interval.
func New(interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{tickInterval: interval, log: log}
}

// Register adds a named callback to the per-iteration rotation. Order of
// registration is the order callbacks run within one iteration.
func (s *Scheduler) Register(name string, fn Tick) {
	s.ticks = append(s.ticks, namedTick{name: name, fn: fn})
}

// Run blocks, executing one iteration every tickInterval, until ctx is
// cancelled. A callback error is logged and the loop continues: a single
// bad DHCP packet or a transient accept error must not bring down the
// recovery server.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case now := <-ticker.C:
			deadline := now.Add(s.tickInterval)
			for _, t := range s.ticks {
				if err := t.fn(deadline); err != nil {
					s.log.Warn("tick failed", "tick", t.name, "error", err)
				}
			}
		}
	}
}

// AcceptTick adapts a net.Listener into a Tick that accepts at most one
// pending connection per iteration and hands it to handle. A listener with
// no pending connection by the deadline is not an error.
func AcceptTick(ln net.Listener, handle func(net.Conn)) Tick {
	return func(deadline time.Time) error {
		type deadliner interface {
			SetDeadline(time.Time) error
		}
		if d, ok := ln.(deadliner); ok {
			_ = d.SetDeadline(deadline)
		}
		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil
			}
			return err
		}
		handle(conn)
		return nil
	}
}
