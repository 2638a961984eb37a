// Package phaseloop provides a single-threaded, cooperative, phase-based task
// scheduler: the ordering core of an event loop, without the I/O runtime.
//
// # Architecture
//
// A [Loop] owns five task queues and runs a fixed phase cycle per iteration:
//
//  1. Timers (min-heap, due-time order, FIFO tie-break)
//  2. Pending I/O callbacks (FIFO, fed by the [IOPoller] collaborator)
//  3. Poll (blocks in [IOPoller.Poll] for at most the computed wait budget)
//  4. Check (immediates, FIFO)
//  5. Close callbacks (FIFO)
//
// Between every single task execution, anywhere in the cycle, the loop
// performs a drain step: the priority ("next tick") queue is drained to
// exhaustion, then the microtask queue, returning to the priority queue
// whenever a microtask enqueues into it. No phase task ever executes while
// either drain queue is non-empty.
//
// The actual I/O readiness mechanism is deliberately out of scope. The loop
// talks to it through the narrow [IOPoller] interface, and the default
// implementation simply parks for the wait budget. Anything that can answer
// Poll and OutstandingHandles can drive the loop.
//
// # Execution Model
//
// The loop is strictly single-threaded and non-preemptive. Exactly one
// callback runs at a time, to completion; the only blocking point is the
// Poll phase. A slow callback stalls the whole loop, and a priority task
// that perpetually reschedules itself starves every phase forever. That is
// intentional: the drain step has no fairness cutoff, because a cutoff would
// change observable ordering.
//
// All queue state is owned by the loop. The schedule and cancel methods are
// safe to call from loop callbacks; calling them from other goroutines is a
// caller-side synchronization contract (wrap them in a mutex, or funnel
// through a channel into the loop goroutine).
//
// # Time
//
// Every timer comparison and "now" read goes through the loop's [Clock].
// The default clock is monotonic wall time; [ManualClock] substitutes a
// settable logical clock for deterministic tests. Requested timer delays
// below the timer quantum (default 1ms) are clamped up to the quantum so
// zero-delay timers cannot starve the other phases.
//
// # Errors
//
// A panic inside a callback is recovered and wrapped in a [CallbackError].
// By default it aborts and propagates out of [Loop.Run]; install a handler
// with [WithErrorHandler] to report it and keep the loop running.
//
// # Usage
//
//	loop, err := phaseloop.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	loop.ScheduleTimer(100*time.Millisecond, func() {
//		fmt.Println("tick")
//	})
//	loop.ScheduleImmediate(func() {
//		fmt.Println("check phase")
//	})
//
//	if err := loop.Run(); err != nil {
//		log.Fatal(err)
//	}
//
// Run returns once every queue is empty and the poller reports no
// outstanding handles, or earlier via [Loop.Stop].
package phaseloop
