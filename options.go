// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package phaseloop

import (
	"fmt"
	"time"

	"github.com/joeycumines/logiface"
)

// loopOptions holds configuration options for Loop creation.
type loopOptions struct {
	clock          Clock
	poller         IOPoller
	logger         *logiface.Logger[logiface.Event]
	errorHandler   func(error)
	timerQuantum   time.Duration
	maxPollWait    time.Duration
	metricsEnabled bool
}

// --- Loop Options ---

// LoopOption configures a Loop instance.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

// loopOptionImpl implements LoopOption.
type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithClock sets the loop's time source. The default is the monotonic system
// clock; tests inject a [ManualClock] for deterministic timer behavior.
func WithClock(clock Clock) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if clock == nil {
			return fmt.Errorf("phaseloop: WithClock requires a non-nil clock")
		}
		opts.clock = clock
		return nil
	}}
}

// WithPoller sets the I/O readiness collaborator consumed by the poll phase.
// The default poller has no I/O sources and simply parks for the wait budget.
func WithPoller(poller IOPoller) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if poller == nil {
			return fmt.Errorf("phaseloop: WithPoller requires a non-nil poller")
		}
		opts.poller = poller
		return nil
	}}
}

// WithLogger attaches a structured logger to the Loop. The loop emits
// debug-level lifecycle events and error-level callback failure reports.
// A nil logger (the default) disables logging entirely.
func WithLogger(logger *logiface.Logger[logiface.Event]) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithErrorHandler installs a global callback error handler. When set, a
// [CallbackError] is reported to the handler and the loop continues; when
// unset (the default), the error aborts the loop and propagates out of
// [Loop.Run].
//
// The handler runs on the loop thread. It must not panic.
func WithErrorHandler(handler func(error)) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.errorHandler = handler
		return nil
	}}
}

// WithTimerQuantum sets the minimum effective timer delay. Requested delays
// and repeat intervals below the quantum are clamped up to it, so zero or
// negative delays cannot busy-spin the timers phase. The default is
// [DefaultTimerQuantum].
func WithTimerQuantum(quantum time.Duration) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if quantum <= 0 {
			return fmt.Errorf("phaseloop: WithTimerQuantum requires a positive duration, got %v", quantum)
		}
		opts.timerQuantum = quantum
		return nil
	}}
}

// WithMaxPollWait caps how long a single poll-phase call may block when no
// timer bounds the wait budget. The default is [DefaultMaxPollWait].
func WithMaxPollWait(maxWait time.Duration) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if maxWait <= 0 {
			return fmt.Errorf("phaseloop: WithMaxPollWait requires a positive duration, got %v", maxWait)
		}
		opts.maxPollWait = maxWait
		return nil
	}}
}

// WithMetrics enables runtime metrics collection on the Loop.
// When enabled, counters can be read via Loop.Metrics(). The overhead is a
// handful of atomic increments per task.
func WithMetrics(enabled bool) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// resolveLoopOptions applies LoopOption instances to loopOptions.
func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		clock:        systemClock{},
		poller:       sleepPoller{},
		timerQuantum: DefaultTimerQuantum,
		maxPollWait:  DefaultMaxPollWait,
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
