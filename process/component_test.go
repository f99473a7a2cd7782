package process

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingStep is a leaf whose execute hook blocks until released.
type blockingStep struct {
	*Step
	proceed chan struct{}
}

func newBlockingStep(name string) *blockingStep {
	b := &blockingStep{proceed: make(chan struct{})}
	b.Step = NewFuncStep(name, func() error {
		<-b.proceed
		return nil
	}, nil)
	return b
}

func (b *blockingStep) release() {
	close(b.proceed)
}

// recorder collects invocation order across components.
type recorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *recorder) add(entry string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

func waitForState(t *testing.T, c Component, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.State() == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestComponentStart(t *testing.T) {
	t.Run("start runs execute and succeeds", func(t *testing.T) {
		executed := false
		step := NewFuncStep("noop", func() error {
			executed = true
			return nil
		}, nil)

		err := step.Start()

		assert.NoError(t, err)
		assert.True(t, executed)
		assert.Equal(t, StateSucceeded, step.State())
		assert.Equal(t, 1.0, step.Progress())
	})

	t.Run("start is rejected while running", func(t *testing.T) {
		step := newBlockingStep("busy")
		go step.Start()
		waitForState(t, step, StateRunning)
		defer step.release()

		err := step.Start()

		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, StateRunning, stateErr.State)
		assert.Equal(t, StateRunning, step.State())
	})

	t.Run("start is rejected while paused", func(t *testing.T) {
		step := newBlockingStep("busy")
		go step.Start()
		waitForState(t, step, StateRunning)
		require.NoError(t, step.Pause())
		defer step.release()

		err := step.Start()

		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, StatePaused, stateErr.State)
	})

	t.Run("start is rejected while rollbacking", func(t *testing.T) {
		proceed := make(chan struct{})
		step := NewFuncStep("slow-undo",
			func() error { return NewExecutionError("boom", nil) },
			func(reason *RollbackReason) error {
				<-proceed
				return nil
			})
		go step.Start()
		waitForState(t, step, StateRollbacking)
		defer close(proceed)

		err := step.Start()

		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, StateRollbacking, stateErr.State)
	})

	t.Run("start is rejected when already succeeded", func(t *testing.T) {
		step := NewFuncStep("once", nil, nil)
		require.NoError(t, step.Start())

		err := step.Start()

		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, StateSucceeded, stateErr.State)
		assert.Equal(t, StateSucceeded, step.State())
	})

	t.Run("start is rejected when already failed", func(t *testing.T) {
		step := NewFuncStep("broken", func() error {
			return NewExecutionError("boom", nil)
		}, nil)
		require.NoError(t, step.Start())
		require.Equal(t, StateFailed, step.State())

		err := step.Start()

		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, StateFailed, stateErr.State)
	})
}

func TestComponentFailure(t *testing.T) {
	t.Run("execution failure rolls back and never escapes Start", func(t *testing.T) {
		rolledBack := false
		cause := errors.New("db down")
		step := NewFuncStep("flaky",
			func() error { return NewExecutionError("insert failed", cause) },
			func(reason *RollbackReason) error {
				rolledBack = true
				return nil
			})

		err := step.Start()

		assert.NoError(t, err)
		assert.True(t, rolledBack)
		assert.Equal(t, StateFailed, step.State())

		reason := step.failureReason()
		require.NotNil(t, reason)
		assert.Equal(t, "insert failed", reason.Hint())
		assert.Equal(t, cause, reason.Cause())
		assert.True(t, step.Equal(reason.Component()))
	})

	t.Run("plain error from execute is wrapped into a reason", func(t *testing.T) {
		cause := errors.New("unexpected")
		step := NewFuncStep("flaky", func() error { return cause }, nil)

		require.NoError(t, step.Start())

		assert.Equal(t, StateFailed, step.State())
		reason := step.failureReason()
		require.NotNil(t, reason)
		assert.Equal(t, "unexpected", reason.Hint())
		assert.Equal(t, cause, reason.Cause())
	})

	t.Run("rollback failure surfaces from Start", func(t *testing.T) {
		undoErr := errors.New("undo broken")
		step := NewFuncStep("flaky",
			func() error { return NewExecutionError("boom", nil) },
			func(reason *RollbackReason) error { return undoErr })

		err := step.Start()

		var rollbackErr *RollbackError
		require.ErrorAs(t, err, &rollbackErr)
		assert.Equal(t, undoErr, rollbackErr.Err)
		// no second-level compensation: the component never reaches FAILED
		assert.Equal(t, StateRollbacking, step.State())
	})
}

func TestComponentCancel(t *testing.T) {
	t.Run("cancel is rejected in ready state", func(t *testing.T) {
		step := NewFuncStep("idle", nil, nil)

		err := step.Cancel(NewRollbackReason("external", nil))

		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, StateReady, stateErr.State)
		assert.Equal(t, StateReady, step.State())
	})

	t.Run("cancel rolls back a succeeded component", func(t *testing.T) {
		rolledBack := false
		step := NewFuncStep("done", nil, func(reason *RollbackReason) error {
			rolledBack = true
			return nil
		})
		require.NoError(t, step.Start())
		require.Equal(t, StateSucceeded, step.State())

		err := step.Cancel(NewRollbackReason("sibling failed", nil))

		assert.NoError(t, err)
		assert.True(t, rolledBack)
		assert.Equal(t, StateFailed, step.State())
	})

	t.Run("racing cancellations roll back exactly once", func(t *testing.T) {
		var rollbacks, failures int
		var mu sync.Mutex
		proceed := make(chan struct{})
		step := NewFuncStep("busy",
			func() error {
				<-proceed
				return nil
			},
			func(reason *RollbackReason) error {
				mu.Lock()
				rollbacks++
				mu.Unlock()
				return nil
			})
		step.AttachListener(&ListenerFuncs{Failed: func(reason *RollbackReason) {
			mu.Lock()
			failures++
			mu.Unlock()
		}})

		go step.Start()
		waitForState(t, step, StateRunning)
		defer close(proceed)

		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, step.Cancel(NewRollbackReason("race", nil)))
			}()
		}
		wg.Wait()

		assert.Equal(t, StateFailed, step.State())
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, rollbacks)
		assert.Equal(t, 1, failures)
	})
}

func TestComponentPauseResume(t *testing.T) {
	t.Run("pause interrupts execution and resume completes it", func(t *testing.T) {
		step := newBlockingStep("pausable")
		started := make(chan error, 1)
		go func() { started <- step.Start() }()
		waitForState(t, step, StateRunning)

		require.NoError(t, step.Pause())
		assert.Equal(t, StatePaused, step.State())

		step.release()
		require.NoError(t, <-started)
		// still paused: the finished execute hook must not complete a paused
		// component
		assert.Equal(t, StatePaused, step.State())

		require.NoError(t, step.Resume())
		assert.Equal(t, StateSucceeded, step.State())
	})

	t.Run("pause interrupts rollback and resume finishes the failure", func(t *testing.T) {
		proceed := make(chan struct{})
		step := NewFuncStep("undoable",
			func() error { return NewExecutionError("boom", nil) },
			func(reason *RollbackReason) error {
				<-proceed
				return nil
			})
		started := make(chan error, 1)
		go func() { started <- step.Start() }()
		waitForState(t, step, StateRollbacking)

		require.NoError(t, step.Pause())
		assert.Equal(t, StatePaused, step.State())

		close(proceed)
		require.NoError(t, <-started)

		require.NoError(t, step.Resume())
		assert.Equal(t, StateFailed, step.State())
		require.NotNil(t, step.failureReason())
		assert.Equal(t, "boom", step.failureReason().Hint())
	})

	t.Run("pause and resume are rejected in wrong states", func(t *testing.T) {
		step := NewFuncStep("idle", nil, nil)

		var stateErr *InvalidStateError
		require.ErrorAs(t, step.Pause(), &stateErr)
		assert.Equal(t, StateReady, stateErr.State)

		require.ErrorAs(t, step.Resume(), &stateErr)
		assert.Equal(t, StateReady, stateErr.State)

		require.NoError(t, step.Start())
		require.ErrorAs(t, step.Pause(), &stateErr)
		assert.Equal(t, StateSucceeded, stateErr.State)
	})
}

func TestComponentAwait(t *testing.T) {
	t.Run("await returns once the component succeeds", func(t *testing.T) {
		step := NewFuncStep("slow", func() error {
			time.Sleep(150 * time.Millisecond)
			return nil
		}, nil)
		go step.Start()

		require.NoError(t, step.Await())
		assert.Equal(t, StateSucceeded, step.State())
	})

	t.Run("await with elapsed timeout reports an error and leaves state alone", func(t *testing.T) {
		step := newBlockingStep("stuck")
		go step.Start()
		waitForState(t, step, StateRunning)
		defer step.release()

		err := step.AwaitTimeout(250 * time.Millisecond)

		var timeoutErr *TimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		assert.Equal(t, 250*time.Millisecond, timeoutErr.Timeout)
		assert.False(t, step.State().IsTerminal())
	})

	t.Run("await on a terminal component returns immediately", func(t *testing.T) {
		step := NewFuncStep("done", nil, nil)
		require.NoError(t, step.Start())

		assert.NoError(t, step.Await())
		assert.NoError(t, step.AwaitTimeout(0))
	})
}

func TestComponentListeners(t *testing.T) {
	t.Run("listeners observe success in attach order", func(t *testing.T) {
		rec := &recorder{}
		step := NewFuncStep("observed", nil, nil)
		step.AttachListener(&ListenerFuncs{Succeeded: func() { rec.add("first") }})
		step.AttachListener(&ListenerFuncs{Succeeded: func() { rec.add("second") }})

		require.NoError(t, step.Start())

		assert.Equal(t, []string{"first", "second"}, rec.list())
	})

	t.Run("attach on a succeeded component notifies synchronously", func(t *testing.T) {
		step := NewFuncStep("done", nil, nil)
		require.NoError(t, step.Start())

		notified := false
		step.AttachListener(&ListenerFuncs{Succeeded: func() { notified = true }})

		assert.True(t, notified)
	})

	t.Run("attach on a failed component delivers the stored reason", func(t *testing.T) {
		step := NewFuncStep("broken", func() error {
			return NewExecutionError("boom", nil)
		}, nil)
		require.NoError(t, step.Start())

		var got *RollbackReason
		step.AttachListener(&ListenerFuncs{Failed: func(reason *RollbackReason) { got = reason }})

		require.NotNil(t, got)
		assert.Equal(t, "boom", got.Hint())
	})

	t.Run("detached listeners are not notified", func(t *testing.T) {
		notified := false
		listener := &ListenerFuncs{Succeeded: func() { notified = true }}
		step := NewFuncStep("quiet", nil, nil)
		step.AttachListener(listener)
		step.DetachListener(listener)

		require.NoError(t, step.Start())

		assert.False(t, notified)
		assert.Empty(t, step.Listeners())
	})
}

func TestComponentIdentity(t *testing.T) {
	t.Run("identifiers are unique and equality is identifier equality", func(t *testing.T) {
		a := NewFuncStep("a", nil, nil)
		b := NewFuncStep("b", nil, nil)

		assert.NotEmpty(t, a.ID())
		assert.NotEqual(t, a.ID(), b.ID())
		assert.True(t, a.Equal(a))
		assert.False(t, a.Equal(b))
		assert.False(t, a.Equal(nil))
	})

	t.Run("name is mutable and part of the string form", func(t *testing.T) {
		step := NewFuncStep("initial", nil, nil)
		step.SetName("renamed")

		assert.Equal(t, "renamed", step.Name())
		assert.Contains(t, step.String(), "renamed")
		assert.Contains(t, step.String(), step.ID())
	})
}
