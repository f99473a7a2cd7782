package process

// State represents the lifecycle state of a process component.
type State string

const (
	// StateReady means the component has been created but not started.
	StateReady State = "ready"
	// StateRunning means the execute path is in progress.
	StateRunning State = "running"
	// StatePaused means execution or rollback has been interrupted.
	StatePaused State = "paused"
	// StateRollbacking means the rollback path is in progress.
	StateRollbacking State = "rollbacking"
	// StateSucceeded is the terminal state of a successful execution.
	StateSucceeded State = "succeeded"
	// StateFailed is the terminal state of a cancelled or failed component.
	StateFailed State = "failed"
)

// IsTerminal reports whether the state can never be left again.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

func (s State) String() string {
	return string(s)
}
