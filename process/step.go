package process

import (
	"context"

	"github.com/glimte/procflow-go/internal/reliability"
)

// StepLogic is the contract for the business logic of a leaf component.
// Execute signals failure by returning an *ExecutionError; Rollback undoes
// whatever Execute already did. Logic must not call Start or Cancel on its
// own enclosing component.
type StepLogic interface {
	Execute() error
	Rollback(reason *RollbackReason) error
}

// StepFuncs adapts plain functions to StepLogic. Either field may be nil, in
// which case the corresponding direction is a no-op.
type StepFuncs struct {
	OnExecute  func() error
	OnRollback func(reason *RollbackReason) error
}

func (s StepFuncs) Execute() error {
	if s.OnExecute == nil {
		return nil
	}
	return s.OnExecute()
}

func (s StepFuncs) Rollback(reason *RollbackReason) error {
	if s.OnRollback == nil {
		return nil
	}
	return s.OnRollback(reason)
}

// Step is a leaf component: it owns no children and delegates its execute
// and rollback work to a StepLogic. Pause and resume are accepted but carry
// no work of their own; a paused step simply finishes its transition once
// resumed.
type Step struct {
	*Base
	logic StepLogic
}

// NewStep creates a leaf component around the given logic.
func NewStep(name string, logic StepLogic) *Step {
	s := &Step{logic: logic}
	s.Base = NewBase(name, s)
	return s
}

// NewFuncStep creates a leaf component from bare functions. rollback may be
// nil for steps with nothing to undo.
func NewFuncStep(name string, execute func() error, rollback func(reason *RollbackReason) error) *Step {
	return NewStep(name, StepFuncs{OnExecute: execute, OnRollback: rollback})
}

// NewRetryStep creates a leaf that retries transient execution failures
// according to the given policy before giving up and raising the rollback
// cascade. Rollback is never retried: compensation has no second level.
func NewRetryStep(name string, logic StepLogic, policy reliability.RetryPolicy) *Step {
	return NewStep(name, &retryLogic{logic: logic, policy: policy})
}

type retryLogic struct {
	logic  StepLogic
	policy reliability.RetryPolicy
}

func (r *retryLogic) Execute() error {
	return reliability.Retry(context.Background(), r.policy, r.logic.Execute)
}

func (r *retryLogic) Rollback(reason *RollbackReason) error {
	return r.logic.Rollback(reason)
}

// Behavior implementation.

func (s *Step) Execute() error {
	return s.logic.Execute()
}

func (s *Step) Rollback(reason *RollbackReason) error {
	return s.logic.Rollback(reason)
}

func (s *Step) HandlePause() error { return nil }

func (s *Step) ResumeExecution() error { return nil }

func (s *Step) ResumeRollback() error { return nil }
