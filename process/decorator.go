package process

// Decorator is the base for components that wrap exactly one other component
// to add behavior around its execute and rollback paths. Every identity,
// query and listener operation is forwarded to the wrapped component, so a
// decorated component is observationally indistinguishable from an
// undecorated one to code that only inspects identity or state. Execute and
// rollback are not forwarded: the concrete decorator supplies those through
// its Behavior.
//
// A decorator always reports that it requires rollback, because it may need
// to undo behavior of its own even when the wrapped component has none.
type Decorator struct {
	*Base
	wrapped Component
}

// NewDecorator creates the forwarding core for a concrete decorator. The
// behavior is the concrete decorator itself.
func NewDecorator(wrapped Component, b Behavior) *Decorator {
	d := &Decorator{wrapped: wrapped}
	d.Base = NewBase("", b)
	d.Base.observed = wrapped.State
	d.Base.forceRequiresRollback()
	return d
}

// Wrapped returns the component this decorator wraps.
func (d *Decorator) Wrapped() Component {
	return d.wrapped
}

// Forwarded operations.

func (d *Decorator) ID() string { return d.wrapped.ID() }

func (d *Decorator) Name() string { return d.wrapped.Name() }

func (d *Decorator) SetName(name string) { d.wrapped.SetName(name) }

func (d *Decorator) Progress() float64 { return d.wrapped.Progress() }

func (d *Decorator) State() State { return d.wrapped.State() }

func (d *Decorator) Parent() Component { return d.wrapped.Parent() }

func (d *Decorator) AttachListener(l Listener) { d.wrapped.AttachListener(l) }

func (d *Decorator) DetachListener(l Listener) { d.wrapped.DetachListener(l) }

func (d *Decorator) Listeners() []Listener { return d.wrapped.Listeners() }

func (d *Decorator) Equal(other Component) bool { return d.wrapped.Equal(other) }

func (d *Decorator) RequiresRollback() bool { return true }

func (d *Decorator) String() string { return d.wrapped.String() }
