package process

import (
	"context"
	"errors"
	"sync"
)

// Handle represents the asynchronous completion of a task submitted by an
// Async wrapper.
type Handle struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

func (h *Handle) complete(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}

// Done returns a channel that is closed when the task has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the task error. It is only meaningful after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or the context is cancelled and
// returns the task error.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Async is a decorator that hands execution and rollback of the wrapped
// component to a private background worker and returns immediately. Each
// wrapper owns its own single-worker goroutine, so at most one task is in
// flight per wrapper and execution and rollback can never overlap in time.
//
// A component wrapped by Async must be independent of its sibling subtrees:
// the enclosing composite's forward walk proceeds as soon as the background
// hand-off happened, not when the wrapped work finishes. Failures of the
// wrapped component are observed through its listeners or the execution
// handle, never through the enclosing composite's own cancellation.
type Async struct {
	*Decorator

	tasks     chan func()
	closeOnce sync.Once

	mu            sync.Mutex
	rollingBack   bool
	executionTask *Handle
	rollbackTask  *Handle
}

// NewAsync wraps a component for background execution. Call Close once the
// wrapper's outcome has been consumed to release the worker.
func NewAsync(wrapped Component) *Async {
	a := &Async{tasks: make(chan func(), 2)}
	a.Decorator = NewDecorator(wrapped, a)
	go a.work()
	return a
}

func (a *Async) work() {
	for task := range a.tasks {
		task()
	}
}

// Close shuts down the worker goroutine. The wrapper must not be started or
// cancelled afterwards.
func (a *Async) Close() {
	a.closeOnce.Do(func() {
		close(a.tasks)
	})
}

// ExecutionHandle returns the handle of the background execution task, or
// nil if Start has not run yet.
func (a *Async) ExecutionHandle() *Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.executionTask
}

// RollbackHandle returns the handle of the background rollback task, or nil
// if no rollback was requested yet.
func (a *Async) RollbackHandle() *Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rollbackTask
}

// RollingBack reports whether the most recently submitted task represents
// rollback rather than execution.
func (a *Async) RollingBack() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rollingBack
}

// Pause delegates directly to the wrapped component; the wrapper has no
// independent pause state of its own. The wrapped component may be paused
// while the background task is in flight.
func (a *Async) Pause() error {
	return a.wrapped.Pause()
}

// Resume delegates directly to the wrapped component.
func (a *Async) Resume() error {
	return a.wrapped.Resume()
}

// Behavior implementation.

// Execute submits the wrapped component's start to the worker and returns
// immediately. The outcome is observable through ExecutionHandle and the
// wrapped component's state and listeners.
func (a *Async) Execute() error {
	handle := newHandle()
	a.mu.Lock()
	a.rollingBack = false
	a.executionTask = handle
	a.mu.Unlock()

	a.tasks <- func() {
		handle.complete(a.wrapped.Start())
	}
	return nil
}

// Rollback submits the wrapped component's cancellation to the worker and
// returns immediately.
func (a *Async) Rollback(reason *RollbackReason) error {
	handle := newHandle()
	a.mu.Lock()
	a.rollingBack = true
	a.rollbackTask = handle
	execution := a.executionTask
	a.mu.Unlock()

	a.tasks <- func() {
		handle.complete(a.cancelWrapped(reason, execution))
	}
	return nil
}

func (a *Async) HandlePause() error { return nil }

func (a *Async) ResumeExecution() error { return nil }

func (a *Async) ResumeRollback() error { return nil }

// cancelWrapped cancels the wrapped component. If the wrapped component is
// still busy executing, its cancellation legitimately reports an invalid
// state; in that case the outstanding execution task is awaited and the
// cancellation retried exactly once. An execution failure surfacing through
// the handle is swallowed here because that failure has already triggered a
// cancellation of the wrapped component through the normal path.
func (a *Async) cancelWrapped(reason *RollbackReason, execution *Handle) error {
	err := a.wrapped.Cancel(reason)
	if err == nil {
		return nil
	}
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		return err
	}

	if execution != nil {
		if waitErr := execution.Wait(context.Background()); waitErr != nil {
			var execErr *ExecutionError
			if !errors.As(waitErr, &execErr) {
				return waitErr
			}
		}
	}

	// Second and last try; any failure surfaces unmodified.
	return a.wrapped.Cancel(reason)
}
