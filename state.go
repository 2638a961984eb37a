package phaseloop

import (
	"sync/atomic"
)

// LoopState represents the current state of the event loop.
//
// State Machine:
//
//	StateAwake (0) → StateRunning (1)     [Run() / RunOnce()]
//	StateRunning (1) → StateSleeping (2)  [poll phase entry]
//	StateSleeping (2) → StateRunning (1)  [poll phase exit]
//	StateRunning (1) → StateAwake (0)     [Run()/RunOnce() return]
//
// State Transition Rules:
//   - Use tryTransition (CAS) for entering and leaving StateRunning and
//     StateSleeping.
//   - A loop always returns to StateAwake when Run returns, including after
//     a callback error, so it can be restarted by the caller.
type LoopState uint32

const (
	// StateAwake indicates the loop is constructed and not running.
	StateAwake LoopState = iota
	// StateRunning indicates the loop is actively executing tasks.
	StateRunning
	// StateSleeping indicates the loop is blocked in the poll phase.
	StateSleeping
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	default:
		return "Unknown"
	}
}

// loopState is an atomic state cell. The loop itself is single-threaded, but
// State() is observable from other goroutines, so transitions use CAS.
type loopState struct {
	v atomic.Uint32
}

func (s *loopState) load() LoopState {
	return LoopState(s.v.Load())
}

func (s *loopState) store(state LoopState) {
	s.v.Store(uint32(state))
}

func (s *loopState) tryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
