package process

// RollbackReason describes why a component tree is being cancelled and rolled
// back. It is created once per failure and travels unchanged down the
// cancellation cascade and up through the OnFailed notifications.
type RollbackReason struct {
	component Component
	hint      string
	cause     error
}

// NewRollbackReason creates a reason with a human readable hint and an
// optional underlying cause. The triggering component is bound by the
// framework when the reason first enters the cancellation path.
func NewRollbackReason(hint string, cause error) *RollbackReason {
	return &RollbackReason{hint: hint, cause: cause}
}

// Component returns the component that triggered the rollback, or nil if the
// reason was created outside of any component.
func (r *RollbackReason) Component() Component {
	return r.component
}

// Hint returns the human readable description of the failure.
func (r *RollbackReason) Hint() string {
	return r.hint
}

// Cause returns the underlying error, if any.
func (r *RollbackReason) Cause() error {
	return r.cause
}

func (r *RollbackReason) String() string {
	if r.cause != nil {
		return r.hint + ": " + r.cause.Error()
	}
	return r.hint
}

// bindComponent records the triggering component. The first binding wins so
// the reason stays stable while it propagates.
func (r *RollbackReason) bindComponent(c Component) {
	if r.component == nil {
		r.component = c
	}
}
