package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func waitForState(t *testing.T, s *Scheduler, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state never reached %s, stuck at %s", want, s.State())
}

func TestRunOncePerformsExactlyOneCycle(t *testing.T) {
	var cycles atomic.Int32
	s := New(time.Hour, func(ctx context.Context) { cycles.Add(1) })

	if s.State() != StateIdle {
		t.Fatalf("expected idle before start, got %s", s.State())
	}
	s.RunOnce(context.Background())
	if got := cycles.Load(); got != 1 {
		t.Fatalf("expected one cycle, got %d", got)
	}
	if s.State() != StateStopped {
		t.Fatalf("expected stopped, got %s", s.State())
	}
}

func TestRunCyclesImmediatelyThenSleeps(t *testing.T) {
	cycleDone := make(chan struct{}, 8)
	s := New(time.Hour, func(ctx context.Context) { cycleDone <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	select {
	case <-cycleDone:
	case <-time.After(2 * time.Second):
		t.Fatal("initial cycle never ran")
	}
	waitForState(t, s, StateSleeping)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if s.State() != StateStopped {
		t.Fatalf("expected stopped, got %s", s.State())
	}
}

func TestTriggerWakesSleepingScheduler(t *testing.T) {
	cycleDone := make(chan struct{}, 8)
	s := New(time.Hour, func(ctx context.Context) { cycleDone <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	<-cycleDone
	waitForState(t, s, StateSleeping)

	if !s.Trigger() {
		t.Fatal("trigger should be accepted while sleeping")
	}
	select {
	case <-cycleDone:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not cause a cycle")
	}

	cancel()
	<-done
}

func TestCancellationLetsInFlightCycleFinish(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	s := New(time.Hour, func(ctx context.Context) {
		close(started)
		<-release
		finished.Store(true)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	<-started
	cancel()
	// Cancelled mid-cycle: the scheduler must still be running the cycle.
	if s.State() != StateRunning {
		t.Fatalf("expected running_cycle, got %s", s.State())
	}
	close(release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after the cycle finished")
	}
	if !finished.Load() {
		t.Fatal("in-flight cycle was aborted")
	}
	if s.State() != StateStopped {
		t.Fatalf("expected stopped, got %s", s.State())
	}
}

func TestStopSignalIsInvisibleInsideTheCycle(t *testing.T) {
	// A shutdown arriving mid-cycle must not surface as a cancelled
	// context to platforms processed later in the same cycle: a fetch
	// failing with context.Canceled would send them down the fallback
	// path and downgrade freshly persisted cookies.
	firstDone := make(chan struct{})
	cancelled := make(chan struct{})
	var lateErr error
	s := New(time.Hour, func(ctx context.Context) {
		close(firstDone)
		<-cancelled
		lateErr = ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	<-firstDone
	cancel()
	close(cancelled)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after the cycle finished")
	}
	if lateErr != nil {
		t.Fatalf("work inside the cycle observed %v, want nil", lateErr)
	}
}

func TestRunOnceDetachesCycleFromCaller(t *testing.T) {
	var seen error
	s := New(time.Hour, func(ctx context.Context) { seen = ctx.Err() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.RunOnce(ctx)
	if seen != nil {
		t.Fatalf("cycle observed %v, want nil", seen)
	}
}

func TestTriggerCoalesces(t *testing.T) {
	s := New(time.Hour, func(ctx context.Context) {})
	if !s.Trigger() {
		t.Fatal("first trigger should be accepted")
	}
	if s.Trigger() {
		t.Fatal("second pending trigger should be dropped")
	}
}

func TestStateStrings(t *testing.T) {
	cases := map[State]string{
		StateIdle:     "idle",
		StateRunning:  "running_cycle",
		StateSleeping: "sleeping",
		StateStopped:  "stopped",
		State(99):     "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
