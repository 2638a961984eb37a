package phaseloop

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrLoopAlreadyRunning is returned when Run or RunOnce is called on a
	// loop that is already running, including reentrant calls from a callback.
	ErrLoopAlreadyRunning = errors.New("phaseloop: loop is already running")
)

// CallbackError wraps a panic recovered from a task callback.
//
// Under the default error policy a CallbackError aborts the loop and
// propagates out of [Loop.Run]; with [WithErrorHandler] it is reported to
// the handler instead and the loop continues to the next drain step.
type CallbackError struct {
	// Value is the recovered panic value.
	Value any
	// Kind identifies the queue the failing task was executed from.
	Kind TaskKind
	// TaskID is the loop-assigned id of the failing task.
	TaskID uint64
}

// Error implements the error interface.
func (e *CallbackError) Error() string {
	return fmt.Sprintf("phaseloop: %s task %d panicked: %v", e.Kind, e.TaskID, e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type.
// This enables use with [errors.Is] and [errors.As] for error matching
// through the cause chain.
//
// If the panic value is not an error (e.g. a string), returns nil.
func (e *CallbackError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
