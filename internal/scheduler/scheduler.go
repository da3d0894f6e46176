// Package scheduler drives periodic refresh cycles with a small explicit
// state machine, so "run once" and "run forever" share one code path.
package scheduler

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// State is the scheduler lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateSleeping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running_cycle"
	case StateSleeping:
		return "sleeping"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Scheduler runs the given refresh function on an interval. Cancellation is
// advisory at the cycle level: an in-flight cycle always finishes before
// the scheduler stops, and the stop signal is never visible to work inside
// the cycle. Platforms late in a cycle must not fail over to fallbacks just
// because a shutdown arrived while earlier platforms were refreshing.
type Scheduler struct {
	interval time.Duration
	refresh  func(ctx context.Context)
	trigger  chan struct{}
	state    atomic.Int32
}

func New(interval time.Duration, refresh func(ctx context.Context)) *Scheduler {
	return &Scheduler{
		interval: interval,
		refresh:  refresh,
		trigger:  make(chan struct{}, 1),
	}
}

// State reports the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Trigger wakes a sleeping scheduler for one early cycle. It reports
// whether the wakeup was accepted (at most one can be pending).
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// RunOnce performs exactly one cycle and transitions to stopped.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.state.Store(int32(StateRunning))
	s.refresh(context.WithoutCancel(ctx))
	s.state.Store(int32(StateStopped))
}

// Run performs an immediate cycle, then alternates sleeping and running
// until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	defer s.state.Store(int32(StateStopped))
	log.Printf("cookiesync: scheduler started, interval %s", s.interval)
	for {
		s.state.Store(int32(StateRunning))
		// The cycle runs detached from the stop signal. Values carried by
		// ctx remain visible; only its cancellation is masked.
		s.refresh(context.WithoutCancel(ctx))
		if ctx.Err() != nil {
			log.Printf("cookiesync: scheduler stopping after in-flight cycle")
			return
		}

		s.state.Store(int32(StateSleeping))
		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Printf("cookiesync: scheduler stopped")
			return
		case <-timer.C:
		case <-s.trigger:
			timer.Stop()
		}
	}
}
