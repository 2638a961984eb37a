// Package phaseloop consumes I/O readiness through the IOPoller interface.
//
// # I/O Collaboration
//
// The loop never performs I/O itself. During the poll phase it calls
// [IOPoller.Poll] with a wait budget derived from the next timer deadline,
// and executes whatever ready callbacks come back, each followed by a drain
// step. Callbacks a poller wants deferred to the next iteration (error
// callbacks, teardown notifications) go through [Loop.ScheduleIOCallback]
// and [Loop.ScheduleClose] instead.
//
// # Error Delivery
//
// Poll has no error return: an I/O failure must be delivered as a ready
// callback that reports the error to whoever issued the operation. Errors
// must never be silently lost inside the poller.

package phaseloop

import "time"

// ReadyCallback is a unit of work returned by [IOPoller.Poll], representing
// a completed or failed I/O operation.
type ReadyCallback func()

// IOPoller is the collaborator interface between the loop and an I/O
// readiness mechanism (epoll, kqueue, IOCP, or a test fake).
type IOPoller interface {
	// Poll blocks the loop thread until at least one I/O event is ready or
	// timeout elapses, whichever is first, and returns the ready callbacks.
	// A timeout of zero must not block: poll whatever is ready and return,
	// possibly with an empty result.
	Poll(timeout time.Duration) []ReadyCallback

	// OutstandingHandles reports the number of I/O handles still registered
	// with the poller. The loop's termination condition requires this to be
	// zero.
	OutstandingHandles() int
}

// sleepPoller is the default IOPoller. It has no I/O sources: Poll simply
// parks the thread for the wait budget, and no handles are ever outstanding.
type sleepPoller struct{}

func (sleepPoller) Poll(timeout time.Duration) []ReadyCallback {
	if timeout > 0 {
		time.Sleep(timeout)
	}
	return nil
}

func (sleepPoller) OutstandingHandles() int { return 0 }
