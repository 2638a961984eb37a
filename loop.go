// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package phaseloop

import (
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// Policy constants.
const (
	// DefaultTimerQuantum is the default minimum effective timer delay.
	// Requested delays below it are clamped up, reproducing the timer
	// coalescing behavior of real event loop runtimes.
	DefaultTimerQuantum = time.Millisecond

	// DefaultMaxPollWait caps a single poll-phase block when no timer
	// deadline bounds the wait budget.
	DefaultMaxPollWait = 10 * time.Second
)

var loopIDCounter atomic.Uint64

// Loop is a single-threaded, cooperative, phase-based task scheduler.
//
// Each iteration visits the five phases in fixed order (timers, pending I/O
// callbacks, poll, check, close), and a drain step (priority queue, then
// microtask queue, both to exhaustion) runs before the first phase and after
// every single task execution. See the package documentation for the full
// ordering contract.
//
// Thread Safety:
//   - The loop's internal algorithm assumes single-threaded access. Schedule
//     and Cancel are safe from loop callbacks; invoking them from other
//     goroutines requires caller-side synchronization (an external mutex, or
//     a channel feeding the loop goroutine).
//   - Stop, State, and Metrics are safe from any goroutine.
type Loop struct {
	// Prevent copying
	_ [0]func()

	// Collaborators
	clock  Clock
	poller IOPoller
	logger *logiface.Logger[logiface.Event]

	// Error policy: nil = fatal, non-nil = report and continue
	onError func(error)

	metrics *metrics

	state         loopState
	stopRequested atomic.Bool

	// Queues (owned exclusively by the loop)
	timers     timerQueue
	pending    fifoQueue // pending-I/O phase
	immediates fifoQueue // check phase
	closers    fifoQueue // close phase
	priority   fifoQueue // drain step, level 1 ("next tick")
	microtasks fifoQueue // drain step, level 2

	nextTaskID atomic.Uint64

	timerQuantum time.Duration
	maxPollWait  time.Duration

	id uint64
}

// New creates a new event loop with the given options.
func New(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	loop := &Loop{
		id:           loopIDCounter.Add(1),
		clock:        cfg.clock,
		poller:       cfg.poller,
		logger:       cfg.logger,
		onError:      cfg.errorHandler,
		timers:       newTimerQueue(),
		timerQuantum: cfg.timerQuantum,
		maxPollWait:  cfg.maxPollWait,
	}
	if cfg.metricsEnabled {
		loop.metrics = &metrics{}
	}

	return loop, nil
}

// ScheduleTimer schedules cb to run once after delay, in the timers phase.
// Delays below the timer quantum (including zero and negative delays) are
// clamped up to the quantum.
//
// A nil cb returns the zero Handle without scheduling.
func (l *Loop) ScheduleTimer(delay time.Duration, cb func()) Handle {
	return l.scheduleTimer(delay, 0, cb)
}

// ScheduleRepeating schedules cb to run after delay and then repeatedly
// every interval. Each re-arm computes the next deadline as the fire time
// plus interval. Both delay and interval are clamped to the timer quantum.
// The returned handle stays valid across firings until cancelled.
//
// A nil cb returns the zero Handle without scheduling.
func (l *Loop) ScheduleRepeating(delay, interval time.Duration, cb func()) Handle {
	if interval < l.timerQuantum {
		interval = l.timerQuantum
	}
	return l.scheduleTimer(delay, interval, cb)
}

func (l *Loop) scheduleTimer(delay, interval time.Duration, cb func()) Handle {
	if cb == nil {
		return Handle{}
	}
	if delay < l.timerQuantum {
		delay = l.timerQuantum
	}
	t := &timerTask{
		fn:       cb,
		when:     l.clock.Now().Add(delay),
		interval: interval,
		id:       l.nextTaskID.Add(1),
	}
	l.timers.push(t)
	return Handle{id: t.id, kind: KindTimer}
}

// ScheduleImmediate schedules cb for the check phase. Immediates scheduled
// during the check phase itself run in the next iteration; immediates
// scheduled from a poll-phase callback run in the current iteration's check
// phase.
func (l *Loop) ScheduleImmediate(cb func()) Handle {
	return l.pushFIFO(&l.immediates, KindImmediate, cb)
}

// ScheduleIOCallback schedules cb for the pending-I/O phase of the next
// iteration. This queue is intended to be fed by the [IOPoller]
// collaborator for completions it defers past the current poll (error
// callbacks, connection-teardown callbacks).
func (l *Loop) ScheduleIOCallback(cb func()) Handle {
	return l.pushFIFO(&l.pending, KindIOCallback, cb)
}

// ScheduleClose schedules cb for the close phase, the teardown slot at the
// end of each iteration.
func (l *Loop) ScheduleClose(cb func()) Handle {
	return l.pushFIFO(&l.closers, KindClose, cb)
}

// SchedulePriority schedules cb on the "next tick" queue, which is drained
// to exhaustion before the microtask queue at every drain step. A priority
// task that perpetually reschedules itself starves the rest of the loop;
// see the package documentation.
func (l *Loop) SchedulePriority(cb func()) Handle {
	return l.pushFIFO(&l.priority, KindPriority, cb)
}

// ScheduleMicrotask schedules cb on the microtask queue, drained after the
// priority queue at every drain step.
func (l *Loop) ScheduleMicrotask(cb func()) Handle {
	return l.pushFIFO(&l.microtasks, KindMicrotask, cb)
}

func (l *Loop) pushFIFO(q *fifoQueue, kind TaskKind, cb func()) Handle {
	if cb == nil {
		return Handle{}
	}
	id := l.nextTaskID.Add(1)
	q.push(id, cb)
	return Handle{id: id, kind: kind}
}

// Cancel cancels the task identified by h, if it has not yet executed.
// Cancelling a stale, fired, double-cancelled, or zero handle is a silent
// no-op. Cancellation takes effect before the task could next be considered
// for execution.
func (l *Loop) Cancel(h Handle) {
	switch h.kind {
	case KindTimer:
		l.timers.cancel(h.id)
	case KindIOCallback:
		l.pending.remove(h.id)
	case KindImmediate:
		l.immediates.remove(h.id)
	case KindClose:
		l.closers.remove(h.id)
	case KindPriority:
		l.priority.remove(h.id)
	case KindMicrotask:
		l.microtasks.remove(h.id)
	}
}

// Run executes phase cycles until the loop is idle or Stop is called,
// blocking the calling goroutine. It returns a [CallbackError] if a callback
// panics under the default error policy, and ErrLoopAlreadyRunning for
// reentrant or concurrent calls.
//
// The loop is idle, and Run returns nil, when every queue is empty and the
// poller reports zero outstanding handles, checked once per cycle at the top
// of each iteration.
//
// Run always returns the loop to a restartable state: after a callback
// error the caller may schedule more work and call Run again.
func (l *Loop) Run() error {
	if !l.state.tryTransition(StateAwake, StateRunning) {
		return ErrLoopAlreadyRunning
	}
	defer l.state.store(StateAwake)
	defer l.stopRequested.Store(false)

	l.logger.Debug().Uint64("loop", l.id).Log("run started")

	for {
		if l.stopRequested.Load() {
			l.logger.Debug().Uint64("loop", l.id).Log("run stopped")
			return nil
		}
		if l.idle() {
			l.logger.Debug().Uint64("loop", l.id).Log("run finished")
			return nil
		}
		if err := l.iterate(); err != nil {
			l.logger.Err().Uint64("loop", l.id).Err(err).Log("run aborted")
			return err
		}
	}
}

// RunOnce executes exactly one full phase cycle and reports whether any work
// remains queued. Like Run, a callback panic under the default policy is
// returned as a [CallbackError]; the remaining-work report is valid either
// way.
//
// RunOnce observes Stop the same way Run does: a pending stop request makes
// it return without executing anything, and any stop request is consumed
// when RunOnce returns.
func (l *Loop) RunOnce() (bool, error) {
	if !l.state.tryTransition(StateAwake, StateRunning) {
		return false, ErrLoopAlreadyRunning
	}
	defer l.state.store(StateAwake)
	defer l.stopRequested.Store(false)

	if l.stopRequested.Load() {
		return !l.idle(), nil
	}
	err := l.iterate()
	return !l.idle(), err
}

// Stop requests termination at the next iteration boundary. The current
// phase cycle runs to completion first. The request is sticky until Run or
// RunOnce returns (a Stop issued before Run causes Run to exit at its first
// boundary, without executing anything).
//
// Stop is safe to call from loop callbacks and from other goroutines.
func (l *Loop) Stop() {
	l.stopRequested.Store(true)
}

// State returns the current loop state.
func (l *Loop) State() LoopState {
	return l.state.load()
}

// idle reports the termination condition: all queues empty and no
// outstanding poller handles.
func (l *Loop) idle() bool {
	return l.timers.len() == 0 &&
		l.pending.len() == 0 &&
		l.immediates.len() == 0 &&
		l.closers.len() == 0 &&
		l.priority.len() == 0 &&
		l.microtasks.len() == 0 &&
		l.poller.OutstandingHandles() == 0
}

// iterate runs one full phase cycle. The opening drain step covers work
// scheduled before the cycle (or left by the previous close phase), so
// priority tasks and microtasks run before the loop enters its first phase.
func (l *Loop) iterate() error {
	l.metrics.recordIteration()

	if err := l.drain(); err != nil {
		return err
	}
	if err := l.runTimers(); err != nil {
		return err
	}
	if err := l.runPending(); err != nil {
		return err
	}
	if err := l.runPoll(); err != nil {
		return err
	}
	if err := l.runCheck(); err != nil {
		return err
	}
	return l.runClose()
}

// drain is the two-level drain step: exhaust the priority queue FIFO, then
// the microtask queue FIFO, returning to the priority queue whenever a
// microtask enqueues into it. There is deliberately no fairness cutoff.
func (l *Loop) drain() error {
	var depth uint64
	for {
		if e, ok := l.priority.pop(); ok {
			depth++
			if err := l.execute(KindPriority, e.id, e.fn); err != nil {
				return err
			}
			continue
		}
		if e, ok := l.microtasks.pop(); ok {
			depth++
			if err := l.execute(KindMicrotask, e.id, e.fn); err != nil {
				return err
			}
			continue
		}
		l.metrics.recordDrainDepth(depth)
		return nil
	}
}

// runTask executes one phase task, then performs the drain step.
func (l *Loop) runTask(kind TaskKind, id uint64, fn func()) error {
	if err := l.execute(kind, id, fn); err != nil {
		return err
	}
	return l.drain()
}

// runTimers pops and executes every timer due at phase entry, in deadline
// order with FIFO tie-break. The "now" snapshot is taken once, so timers
// scheduled by timer callbacks (always clamped at least one quantum into
// the future) wait for a later iteration. Repeating timers re-arm at their
// fire time plus interval, unless cancelled from their own callback.
func (l *Loop) runTimers() error {
	now := l.clock.Now()
	for {
		t, ok := l.timers.popDue(now)
		if !ok {
			return nil
		}
		fireAt := l.clock.Now()
		err := l.runTask(KindTimer, t.id, t.fn)
		if t.interval > 0 && !t.cancelled {
			l.timers.rearm(t, fireAt.Add(t.interval))
		}
		if err != nil {
			return err
		}
	}
}

// runPhase executes the tasks present in q at phase entry. The snapshot
// boundary is the tail id at entry: task ids are assigned from one monotonic
// counter, so anything scheduled during the phase sorts above the boundary
// and waits for the next iteration, even when a same-phase cancellation
// keeps the queue length unchanged.
func (l *Loop) runPhase(kind TaskKind, q *fifoQueue) error {
	limit, ok := q.tailID()
	if !ok {
		return nil
	}
	for {
		e, ok := q.popThrough(limit)
		if !ok {
			return nil
		}
		if err := l.runTask(kind, e.id, e.fn); err != nil {
			return err
		}
	}
}

// runPending drains the pending-I/O callbacks present at phase entry.
func (l *Loop) runPending() error {
	return l.runPhase(KindIOCallback, &l.pending)
}

// runPoll invokes the poller with the computed wait budget and executes the
// ready callbacks it returns. Immediates scheduled by those callbacks are
// eligible in this iteration's check phase.
func (l *Loop) runPoll() error {
	timeout := l.pollTimeout()
	l.metrics.recordPoll()

	if timeout > 0 {
		// The poll call is the loop's only suspension point.
		l.state.tryTransition(StateRunning, StateSleeping)
	}
	ready := l.poller.Poll(timeout)
	l.state.tryTransition(StateSleeping, StateRunning)

	for _, cb := range ready {
		if err := l.runTask(KindIOCallback, l.nextTaskID.Add(1), cb); err != nil {
			return err
		}
	}
	return nil
}

// pollTimeout computes the poll-phase wait budget.
//
// Queued work anywhere else in the cycle must not be starved by I/O
// waiting: pending immediates (the rule that gives the poll→check
// same-iteration exception its teeth), deferred I/O callbacks, close
// callbacks, or a stop request all force a non-blocking poll. Otherwise the
// budget is the time until the next timer deadline, capped at maxPollWait.
// With no timers and no outstanding poller handles the poll is also
// non-blocking, since the loop terminates at the next iteration boundary.
func (l *Loop) pollTimeout() time.Duration {
	if l.stopRequested.Load() ||
		l.immediates.len() > 0 ||
		l.pending.len() > 0 ||
		l.closers.len() > 0 ||
		l.priority.len() > 0 ||
		l.microtasks.len() > 0 {
		return 0
	}
	timeout := l.maxPollWait
	if d, ok := l.timers.untilNext(l.clock.Now()); ok {
		if d < 0 {
			d = 0
		}
		if d < timeout {
			timeout = d
		}
	} else if l.poller.OutstandingHandles() == 0 {
		return 0
	}
	return timeout
}

// runCheck drains the immediates present at phase entry. Immediates
// scheduled during the phase run in the next iteration.
func (l *Loop) runCheck() error {
	return l.runPhase(KindImmediate, &l.immediates)
}

// runClose drains the close callbacks present at phase entry.
func (l *Loop) runClose() error {
	return l.runPhase(KindClose, &l.closers)
}

// execute runs a single callback with panic recovery, applying the
// configured error policy.
func (l *Loop) execute(kind TaskKind, id uint64, fn func()) error {
	if fn == nil {
		return nil
	}
	l.metrics.recordTask(kind)
	err := l.invoke(kind, id, fn)
	if err == nil {
		return nil
	}
	l.logger.Err().
		Uint64("loop", l.id).
		Uint64("task", id).
		Stringer("kind", kind).
		Err(err).
		Log("task callback failed")
	if l.onError != nil {
		l.onError(err)
		return nil
	}
	return err
}

// invoke calls fn, converting a panic into a CallbackError.
func (l *Loop) invoke(kind TaskKind, id uint64, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CallbackError{Value: r, Kind: kind, TaskID: id}
		}
	}()
	fn()
	return nil
}
