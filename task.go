// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package phaseloop

// TaskKind identifies which queue a scheduled task belongs to. The kind set
// is closed: cancellation and bookkeeping dispatch on it exhaustively.
type TaskKind uint8

const (
	// KindNone is the kind of the zero Handle.
	KindNone TaskKind = iota
	// KindTimer is a delayed or repeating task in the timer heap.
	KindTimer
	// KindIOCallback is a task in the pending-I/O queue, drained in the
	// pending phase (deferred I/O completions, error callbacks).
	KindIOCallback
	// KindImmediate is a task in the check-phase queue.
	KindImmediate
	// KindClose is a resource-teardown task in the close-phase queue.
	KindClose
	// KindPriority is a "next tick" task, drained ahead of microtasks at
	// every drain step.
	KindPriority
	// KindMicrotask is a microtask, drained after the priority queue at
	// every drain step.
	KindMicrotask

	kindCount = int(KindMicrotask) + 1
)

// String returns a human-readable representation of the kind.
func (k TaskKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTimer:
		return "timer"
	case KindIOCallback:
		return "io-callback"
	case KindImmediate:
		return "immediate"
	case KindClose:
		return "close"
	case KindPriority:
		return "priority"
	case KindMicrotask:
		return "microtask"
	default:
		return "unknown"
	}
}

// Handle is the opaque cancellation token returned by every schedule call.
//
// A handle is valid until its task executes or is cancelled. Passing a
// stale, double-cancelled, or zero Handle to [Loop.Cancel] is a silent
// no-op, never an error. For repeating timers the handle stays valid across
// firings until the timer is cancelled.
type Handle struct {
	id   uint64
	kind TaskKind
}

// IsZero reports whether h is the zero Handle (never returned by a schedule
// call).
func (h Handle) IsZero() bool {
	return h.id == 0 && h.kind == KindNone
}

// Kind returns the task kind the handle was issued for.
func (h Handle) Kind() TaskKind {
	return h.kind
}
