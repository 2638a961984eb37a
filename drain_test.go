package phaseloop

import (
	"testing"
)

// For any interleaving of priority and microtask scheduling, all priority
// tasks run before any microtask, FIFO within each queue.
func TestPriorityDrainsBeforeMicrotasks(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var r recorder
	l.ScheduleMicrotask(r.mark("m1"))
	l.SchedulePriority(r.mark("p1"))
	l.ScheduleMicrotask(r.mark("m2"))
	l.SchedulePriority(r.mark("p2"))
	l.SchedulePriority(r.mark("p3"))
	l.ScheduleMicrotask(r.mark("m3"))

	if err := l.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !r.equal("p1", "p2", "p3", "m1", "m2", "m3") {
		t.Errorf("unexpected execution order: %v", r.order)
	}
}

// A microtask that enqueues a priority task sends the drain step back to
// the priority queue before microtask draining continues.
func TestMicrotaskEnqueuingPriorityReturnsToPriorityQueue(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var r recorder
	l.SchedulePriority(r.mark("p1"))
	l.ScheduleMicrotask(func() {
		r.mark("m1")()
		l.SchedulePriority(r.mark("p2"))
		l.ScheduleMicrotask(r.mark("m3"))
	})
	l.ScheduleMicrotask(r.mark("m2"))

	if err := l.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !r.equal("p1", "m1", "p2", "m2", "m3") {
		t.Errorf("unexpected execution order: %v", r.order)
	}
}

// The drain-until-empty rule has no fairness cutoff: a priority task that
// re-schedules itself keeps the drain step going, ahead of every phase.
func TestPriorityRedrainsUntilEmpty(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var r recorder
	const depth = 100
	var n int
	var reschedule func()
	reschedule = func() {
		n++
		if n < depth {
			l.SchedulePriority(reschedule)
		}
	}
	l.SchedulePriority(reschedule)
	l.ScheduleMicrotask(r.mark("microtask"))
	l.ScheduleImmediate(r.mark("immediate"))

	if err := l.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if n != depth {
		t.Errorf("priority chain ran %d times, want %d", n, depth)
	}
	if !r.equal("microtask", "immediate") {
		t.Errorf("unexpected execution order after drain: %v", r.order)
	}
}

// The drain step runs between every pair of phase tasks, not just at phase
// boundaries: a microtask scheduled by one immediate runs before the next
// immediate in the same check phase.
func TestDrainStepBetweenPhaseTasks(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var r recorder
	l.ScheduleImmediate(func() {
		r.mark("i1")()
		l.ScheduleMicrotask(r.mark("m"))
		l.SchedulePriority(r.mark("p"))
	})
	l.ScheduleImmediate(r.mark("i2"))

	if err := l.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !r.equal("i1", "p", "m", "i2") {
		t.Errorf("unexpected execution order: %v", r.order)
	}
}

// Priority tasks scheduled by a timer callback run before the next due
// timer in the same timers phase.
func TestDrainStepBetweenTimerTasks(t *testing.T) {
	clock := NewManualClock(testBase)
	l, err := New(WithClock(clock))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var r recorder
	l.ScheduleTimer(0, func() {
		r.mark("t1")()
		l.SchedulePriority(r.mark("p"))
	})
	l.ScheduleTimer(0, r.mark("t2"))

	clock.Advance(DefaultTimerQuantum)
	if err := l.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !r.equal("t1", "p", "t2") {
		t.Errorf("unexpected execution order: %v", r.order)
	}
}
