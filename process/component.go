package process

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// awaitPollInterval is the fixed interval at which Await checks for a
// terminal state. Await deliberately polls instead of waiting on a condition
// so it composes safely with background workers.
const awaitPollInterval = 100 * time.Millisecond

// Component is a node in a process tree: the unit of state, execution and
// rollback. Components are created via NewStep, NewSequence, NewAsync or by
// embedding *Base in a custom type that implements Behavior.
type Component interface {
	fmt.Stringer

	// ID returns the immutable unique identifier of the component.
	ID() string
	Name() string
	SetName(name string)
	State() State
	// Progress reports execution progress in [0, 1].
	Progress() float64
	// Parent returns the composite this component belongs to, or nil.
	Parent() Component

	// Start runs the execute path. It is only legal in StateReady. Business
	// failures never escape Start: they are converted into a cancellation of
	// the whole active ancestor chain. Only rollback failures surface.
	Start() error
	// Pause interrupts the execute or rollback path, recording which
	// direction was interrupted.
	Pause() error
	// Resume continues the direction that Pause interrupted.
	Resume() error
	// Cancel transitions the component (and its active ancestor chain) into
	// rollback. Cancelling a component that is already rolling back or has
	// already failed is a no-op.
	Cancel(reason *RollbackReason) error
	// Await blocks until the component reaches a terminal state.
	Await() error
	// AwaitTimeout blocks until a terminal state or the timeout elapses,
	// whichever comes first. A negative timeout waits indefinitely.
	AwaitTimeout(timeout time.Duration) error

	AttachListener(l Listener)
	DetachListener(l Listener)
	Listeners() []Listener

	// RequiresRollback reports whether the component performed (or may have
	// performed) work that a rollback pass must visit.
	RequiresRollback() bool
	// Equal reports identifier equality.
	Equal(other Component) bool

	setParent(parent Component)
}

// Behavior supplies the work hooks that the Component state machine drives.
// Concrete components implement Behavior and pass themselves to NewBase.
//
// Execute performs the forward work; a business failure is signalled by
// returning an *ExecutionError. Rollback compensates work already done.
// HandlePause is invoked after the state has flipped to paused;
// ResumeExecution and ResumeRollback continue the respective direction.
// Hooks must not call Start or Cancel on their own component reentrantly.
type Behavior interface {
	Execute() error
	Rollback(reason *RollbackReason) error
	HandlePause() error
	ResumeExecution() error
	ResumeRollback() error
}

// Base implements the Component state machine. It keeps identity, state,
// progress and the listener registry, and delegates the actual work to the
// Behavior it was constructed with.
type Base struct {
	id       string
	behavior Behavior
	self     Component

	mu               sync.Mutex
	name             string
	state            State
	progress         float64
	parent           Component
	listeners        []Listener
	reason           *RollbackReason
	rollbacking      bool
	requiresRollback bool

	// observed, when set, replaces the component's own state for Await and
	// outside observers. Decorators point it at the wrapped component.
	observed func() State
}

// NewBase creates the state machine core for a component. The behavior is
// usually the outer component type itself; when it also implements Component
// it becomes the identity reported in rollback reasons and errors.
func NewBase(name string, b Behavior) *Base {
	base := &Base{
		id:       uuid.New().String(),
		behavior: b,
		name:     name,
		state:    StateReady,
	}
	if c, ok := b.(Component); ok {
		base.self = c
	}
	return base
}

func (c *Base) ID() string { return c.id }

func (c *Base) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Base) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

func (c *Base) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Base) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// SetProgress reports execution progress. Values are clamped to [0, 1].
func (c *Base) SetProgress(p float64) {
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	c.mu.Lock()
	c.progress = p
	c.mu.Unlock()
}

func (c *Base) Parent() Component {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parent
}

func (c *Base) setParent(parent Component) {
	c.mu.Lock()
	c.parent = parent
	c.mu.Unlock()
}

func (c *Base) RequiresRollback() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requiresRollback
}

func (c *Base) Equal(other Component) bool {
	return other != nil && c.id == other.ID()
}

func (c *Base) String() string {
	name := c.Name()
	if name == "" {
		return c.id
	}
	return fmt.Sprintf("%s (%s)", name, c.id)
}

// Start transitions READY -> RUNNING and invokes the execute hook. A
// successful hook completes the component; an *ExecutionError is converted
// into a cancellation of the active ancestor chain. Only a failure of the
// resulting rollback surfaces to the caller.
func (c *Base) Start() error {
	c.mu.Lock()
	if c.state != StateReady {
		state := c.state
		c.mu.Unlock()
		return &InvalidStateError{Op: "start", State: state}
	}
	c.state = StateRunning
	c.rollbacking = false
	c.requiresRollback = true
	c.mu.Unlock()

	if err := c.behavior.Execute(); err != nil {
		return c.cancelOnFailure(err)
	}
	c.succeed()
	return nil
}

// cancelOnFailure converts an execute hook failure into a cancellation.
// Rollback errors bubbling back out of a nested cascade pass through
// untouched.
func (c *Base) cancelOnFailure(err error) error {
	var rollbackErr *RollbackError
	if errors.As(err, &rollbackErr) {
		return err
	}
	reason := c.reasonFor(err)
	return c.Cancel(reason)
}

func (c *Base) reasonFor(err error) *RollbackReason {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		reason := execErr.Reason()
		reason.bindComponent(c.component())
		return reason
	}
	reason := NewRollbackReason(err.Error(), err)
	reason.bindComponent(c.component())
	return reason
}

// Pause transitions RUNNING|ROLLBACKING -> PAUSED, recording the interrupted
// direction under the same lock as the state change, then invokes the pause
// hook.
func (c *Base) Pause() error {
	c.mu.Lock()
	if c.state != StateRunning && c.state != StateRollbacking {
		state := c.state
		c.mu.Unlock()
		return &InvalidStateError{Op: "pause", State: state}
	}
	c.rollbacking = c.state == StateRollbacking
	c.state = StatePaused
	c.mu.Unlock()

	return c.behavior.HandlePause()
}

// Resume continues the direction recorded by Pause. Resuming execution that
// completes without failure finishes the component; resuming rollback that
// completes finishes the failure.
func (c *Base) Resume() error {
	c.mu.Lock()
	if c.state != StatePaused {
		state := c.state
		c.mu.Unlock()
		return &InvalidStateError{Op: "resume", State: state}
	}
	rollbacking := c.rollbacking
	if rollbacking {
		c.state = StateRollbacking
	} else {
		c.state = StateRunning
	}
	reason := c.reason
	c.mu.Unlock()

	if rollbacking {
		if err := c.behavior.ResumeRollback(); err != nil {
			return c.asRollbackError(err)
		}
		c.fail(reason)
		return nil
	}
	if err := c.behavior.ResumeExecution(); err != nil {
		return c.cancelOnFailure(err)
	}
	c.succeed()
	return nil
}

// Cancel initiates rollback. If the component has a parent that is not
// already rolling back, the cancellation is delegated upward first so the
// whole active ancestor chain rolls back as one unit; the local rollback then
// happens when the ancestor's reverse traversal reaches this component.
// Cancel is idempotent for components already rolling back or failed.
func (c *Base) Cancel(reason *RollbackReason) error {
	c.mu.Lock()
	switch c.state {
	case StateRollbacking, StateFailed:
		c.mu.Unlock()
		return nil
	case StateRunning, StatePaused, StateSucceeded:
	default:
		state := c.state
		c.mu.Unlock()
		return &InvalidStateError{Op: "cancel", State: state}
	}
	parent := c.parent
	c.mu.Unlock()

	reason.bindComponent(c.component())

	if parent != nil && parent.State() != StateRollbacking {
		return parent.Cancel(reason)
	}
	return c.rollback(reason)
}

// rollback runs the local rollback hook. The ROLLBACKING transition and the
// idempotency check happen under one lock so racing cancellations produce
// exactly one hook invocation and one OnFailed notification.
func (c *Base) rollback(reason *RollbackReason) error {
	c.mu.Lock()
	if c.state == StateRollbacking || c.state == StateFailed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateRollbacking
	c.rollbacking = true
	c.reason = reason
	c.mu.Unlock()

	if err := c.behavior.Rollback(reason); err != nil {
		// No second-level compensation exists; the component stays in
		// StateRollbacking and the error surfaces to the cancelling caller.
		return c.asRollbackError(err)
	}
	c.fail(reason)
	return nil
}

func (c *Base) asRollbackError(err error) error {
	var rollbackErr *RollbackError
	if errors.As(err, &rollbackErr) {
		return err
	}
	return &RollbackError{Component: c.component(), Err: err}
}

// succeed completes the component if it is still running and notifies the
// listeners. Listeners are invoked outside the lock from a snapshot taken
// together with the transition, so each listener observes the outcome exactly
// once.
func (c *Base) succeed() {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	c.state = StateSucceeded
	c.progress = 1
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l.OnSucceeded()
	}
}

// fail finishes the rollback if it is still in progress, stores the reason
// for late subscribers and notifies the listeners.
func (c *Base) fail(reason *RollbackReason) {
	c.mu.Lock()
	if c.state != StateRollbacking {
		c.mu.Unlock()
		return
	}
	c.state = StateFailed
	c.reason = reason
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l.OnFailed(reason)
	}
}

// Await blocks until the component reaches a terminal state.
func (c *Base) Await() error {
	return c.await(-1)
}

// AwaitTimeout blocks until a terminal state is reached or timeout elapses.
// Must not be called from the worker goroutine of an Async wrapper around
// this component, or the wait can deadlock on itself.
func (c *Base) AwaitTimeout(timeout time.Duration) error {
	return c.await(timeout)
}

func (c *Base) await(timeout time.Duration) error {
	if c.observedState().IsTerminal() {
		return nil
	}

	ticker := time.NewTicker(awaitPollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ticker.C:
			if c.observedState().IsTerminal() {
				return nil
			}
		case <-deadline:
			return &TimeoutError{Timeout: timeout}
		}
	}
}

// AttachListener registers a listener. If the component is already terminal
// the corresponding outcome is delivered synchronously before the call
// returns, so late subscribers never miss a result.
func (c *Base) AttachListener(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	state := c.state
	reason := c.reason
	c.mu.Unlock()

	switch state {
	case StateSucceeded:
		l.OnSucceeded()
	case StateFailed:
		l.OnFailed(reason)
	}
}

// DetachListener removes a previously attached listener. Listeners are
// matched by identity.
func (c *Base) DetachListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, attached := range c.listeners {
		if attached == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// Listeners returns a snapshot of the attached listeners.
func (c *Base) Listeners() []Listener {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Listener(nil), c.listeners...)
}

// failureReason returns the stored rollback reason, if any.
func (c *Base) failureReason() *RollbackReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

func (c *Base) observedState() State {
	if c.observed != nil {
		return c.observed()
	}
	return c.State()
}

// component returns the outer component identity when known, falling back to
// the Base itself for error reporting.
func (c *Base) component() Component {
	if c.self != nil {
		return c.self
	}
	return c
}

// forceRequiresRollback is used by decorators, which always take part in a
// rollback pass even when the wrapped component would not.
func (c *Base) forceRequiresRollback() {
	c.mu.Lock()
	c.requiresRollback = true
	c.mu.Unlock()
}
