package process

// Listener observes the terminal outcome of a process component. Each method
// is invoked at most once per component lifecycle, synchronously on whichever
// goroutine drives the terminal transition. A listener attached to an already
// terminal component is notified synchronously inside AttachListener.
type Listener interface {
	OnSucceeded()
	OnFailed(reason *RollbackReason)
}

// ListenerFuncs adapts plain functions to the Listener interface. Either
// field may be nil. Attach the same pointer that should later be detached;
// listeners are tracked by identity.
type ListenerFuncs struct {
	Succeeded func()
	Failed    func(reason *RollbackReason)
}

func (l *ListenerFuncs) OnSucceeded() {
	if l.Succeeded != nil {
		l.Succeeded()
	}
}

func (l *ListenerFuncs) OnFailed(reason *RollbackReason) {
	if l.Failed != nil {
		l.Failed(reason)
	}
}
