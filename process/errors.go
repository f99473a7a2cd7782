package process

import (
	"fmt"
	"time"
)

// InvalidStateError is returned when an operation is requested while the
// component is in a state that does not permit it. It is never retried by the
// framework; callers either check State first or accept the error.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("process: cannot %s component in state %s", e.Op, e.State)
}

// ExecutionError signals that a leaf's business logic failed during the
// execute path. It carries the RollbackReason that the cancellation cascade
// will propagate. Execution errors never escape Start: the component catches
// them and converts them into a Cancel call.
type ExecutionError struct {
	reason *RollbackReason
}

// NewExecutionError creates an execution error with a fresh rollback reason.
// cause may be nil.
func NewExecutionError(hint string, cause error) *ExecutionError {
	return &ExecutionError{reason: NewRollbackReason(hint, cause)}
}

// Reason returns the rollback reason carried by this error.
func (e *ExecutionError) Reason() *RollbackReason {
	return e.reason
}

func (e *ExecutionError) Error() string {
	return "process: execution failed: " + e.reason.String()
}

func (e *ExecutionError) Unwrap() error {
	return e.reason.Cause()
}

// RollbackError signals that a compensation step itself failed. There is no
// second-level compensation, so it propagates out of whatever call triggered
// the rollback.
type RollbackError struct {
	Component Component
	Err       error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("process: rollback of %s failed: %v", e.Component, e.Err)
}

func (e *RollbackError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned by AwaitTimeout when the deadline elapses before
// the component reaches a terminal state. The component state is unaffected.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("process: await timed out after %s", e.Timeout)
}
