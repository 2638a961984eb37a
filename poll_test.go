// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package phaseloop

import (
	"testing"
	"time"
)

// A pending immediate forces a non-blocking poll: I/O waiting must not
// starve the check phase.
func TestPollNonBlockingWhenImmediatePending(t *testing.T) {
	clock := NewManualClock(testBase)
	poller := &fakePoller{clock: clock}
	l, err := New(WithClock(clock), WithPoller(poller))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.ScheduleImmediate(func() {})
	l.ScheduleTimer(time.Hour, func() {}) // would otherwise bound the budget

	if _, err := l.RunOnce(); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if len(poller.timeouts) != 1 || poller.timeouts[0] != 0 {
		t.Errorf("poll timeouts = %v, want [0]", poller.timeouts)
	}
}

// With no other work queued, the wait budget is the time until the next
// timer deadline.
func TestPollWaitBudgetBoundedByNextTimer(t *testing.T) {
	clock := NewManualClock(testBase)
	poller := &fakePoller{clock: clock}
	l, err := New(WithClock(clock), WithPoller(poller))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.ScheduleTimer(7*time.Millisecond, func() {})

	if _, err := l.RunOnce(); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if len(poller.timeouts) != 1 || poller.timeouts[0] != 7*time.Millisecond {
		t.Errorf("poll timeouts = %v, want [7ms]", poller.timeouts)
	}
}

// With outstanding I/O handles and no timers, the budget is the configured
// maximum wait.
func TestPollWaitBudgetCappedByMaxWait(t *testing.T) {
	clock := NewManualClock(testBase)
	poller := &fakePoller{clock: clock, outstanding: 1}
	l, err := New(WithClock(clock), WithPoller(poller), WithMaxPollWait(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := l.RunOnce(); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if len(poller.timeouts) != 1 || poller.timeouts[0] != 50*time.Millisecond {
		t.Errorf("poll timeouts = %v, want [50ms]", poller.timeouts)
	}
}

// A distant timer does not extend the budget past the configured maximum.
func TestPollWaitBudgetMaxWaitBeatsDistantTimer(t *testing.T) {
	clock := NewManualClock(testBase)
	poller := &fakePoller{clock: clock}
	l, err := New(WithClock(clock), WithPoller(poller), WithMaxPollWait(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.ScheduleTimer(time.Hour, func() {})

	if _, err := l.RunOnce(); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if len(poller.timeouts) != 1 || poller.timeouts[0] != 50*time.Millisecond {
		t.Errorf("poll timeouts = %v, want [50ms]", poller.timeouts)
	}
}

// An immediate scheduled from inside a poll-phase callback executes in the
// same iteration's check phase; top-level zero-delay timers run first, in
// that iteration's timers phase.
func TestPollCallbackImmediateRunsSameIteration(t *testing.T) {
	clock := NewManualClock(testBase)
	poller := &fakePoller{clock: clock, outstanding: 1}
	l, err := New(WithClock(clock), WithPoller(poller))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var r recorder
	poller.ready = [][]ReadyCallback{{func() {
		r.mark("io")()
		l.ScheduleImmediate(r.mark("immediateC"))
		poller.outstanding = 0
	}}}

	l.ScheduleTimer(0, r.mark("timerA"))
	l.ScheduleTimer(0, r.mark("timerB"))

	clock.Advance(DefaultTimerQuantum)
	if _, err := l.RunOnce(); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !r.equal("timerA", "timerB", "io", "immediateC") {
		t.Errorf("unexpected execution order: %v", r.order)
	}
}

// Deferred I/O callbacks drain FIFO; ones deferred during the phase wait
// for the next iteration (snapshot discipline).
func TestPendingIOCallbackOrderAndSnapshot(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var r recorder
	l.ScheduleIOCallback(func() {
		r.mark("io1")()
		l.ScheduleIOCallback(r.mark("io3"))
	})
	l.ScheduleIOCallback(r.mark("io2"))
	l.ScheduleImmediate(r.mark("immediate"))

	if _, err := l.RunOnce(); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !r.equal("io1", "io2", "immediate") {
		t.Fatalf("unexpected execution order after first cycle: %v", r.order)
	}

	if _, err := l.RunOnce(); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !r.equal("io1", "io2", "immediate", "io3") {
		t.Errorf("unexpected execution order: %v", r.order)
	}
}

// Close callbacks run in the last phase of the iteration; ones scheduled
// during the close phase wait for the next iteration.
func TestCloseCallbacksRunLast(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var r recorder
	l.ScheduleClose(func() {
		r.mark("close1")()
		l.ScheduleClose(r.mark("close2"))
	})
	l.ScheduleImmediate(r.mark("immediate"))

	if _, err := l.RunOnce(); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !r.equal("immediate", "close1") {
		t.Fatalf("unexpected execution order after first cycle: %v", r.order)
	}

	if err := l.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !r.equal("immediate", "close1", "close2") {
		t.Errorf("unexpected execution order: %v", r.order)
	}
}

// The termination condition requires zero outstanding poller handles: the
// loop keeps polling while the collaborator holds handles, even with every
// queue empty.
func TestRunWaitsForOutstandingHandles(t *testing.T) {
	clock := NewManualClock(testBase)
	var r recorder
	poller := &fakePoller{clock: clock, outstanding: 1}
	l, err := New(WithClock(clock), WithPoller(poller))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	poller.ready = [][]ReadyCallback{nil, {func() {
		r.mark("io")()
		poller.outstanding = 0
	}}}

	if err := l.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !r.equal("io") {
		t.Errorf("unexpected execution order: %v", r.order)
	}
	if len(poller.timeouts) < 2 {
		t.Errorf("poll count = %d, want at least 2", len(poller.timeouts))
	}
}
