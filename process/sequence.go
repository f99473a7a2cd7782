package process

import (
	"fmt"
	"sync"
)

// Composite is a component that contains and sequences child components.
// Children are exclusively owned: adding a component sets its parent
// back-reference, removing it clears it again. The traversal contract for
// any implementation is: each child is started at most once, rollback visits
// only children that were started, and both walks stop as soon as the
// composite's own state no longer matches the direction being walked.
type Composite interface {
	Component

	Add(child Component)
	AddAt(index int, child Component) error
	Remove(child Component) bool
	// Components returns a snapshot of the current children.
	Components() []Component
	ComponentAt(index int) (Component, error)
}

// Sequence is the default Composite: it starts its children strictly left to
// right on the caller's goroutine and rolls back strictly right to left,
// beginning at the last child that was started. The child list is walked by
// live index, not a snapshot, so a workflow may grow its own plan while it
// runs.
type Sequence struct {
	*Base

	childMu  sync.Mutex
	children []Component
	// reached is the highest index whose Start was invoked, -1 before any.
	reached int
	// forward and backward are the resumable walk cursors.
	forward  int
	backward int
}

// NewSequence creates an empty left-to-right composite.
func NewSequence(name string) *Sequence {
	s := &Sequence{reached: -1}
	s.Base = NewBase(name, s)
	return s
}

// Add appends a child and takes ownership of it.
func (s *Sequence) Add(child Component) {
	s.childMu.Lock()
	defer s.childMu.Unlock()
	s.children = append(s.children, child)
	child.setParent(s)
}

// AddAt inserts a child at the given index. Inserting below a walk cursor of
// a composite that is already executing shifts the ordering guarantees; that
// is the caller's responsibility to avoid.
func (s *Sequence) AddAt(index int, child Component) error {
	s.childMu.Lock()
	defer s.childMu.Unlock()
	if index < 0 || index > len(s.children) {
		return fmt.Errorf("process: index %d out of range [0,%d]", index, len(s.children))
	}
	s.children = append(s.children, nil)
	copy(s.children[index+1:], s.children[index:])
	s.children[index] = child
	child.setParent(s)
	return nil
}

// Remove detaches the first child equal to the given component and clears
// its parent back-reference. It reports whether a child was removed.
func (s *Sequence) Remove(child Component) bool {
	s.childMu.Lock()
	defer s.childMu.Unlock()
	for i, c := range s.children {
		if c.Equal(child) {
			s.children = append(s.children[:i], s.children[i+1:]...)
			c.setParent(nil)
			return true
		}
	}
	return false
}

// Components returns a copy of the current child list.
func (s *Sequence) Components() []Component {
	s.childMu.Lock()
	defer s.childMu.Unlock()
	return append([]Component(nil), s.children...)
}

// ComponentAt returns the child at the given index.
func (s *Sequence) ComponentAt(index int) (Component, error) {
	s.childMu.Lock()
	defer s.childMu.Unlock()
	if index < 0 || index >= len(s.children) {
		return nil, fmt.Errorf("process: index %d out of range [0,%d)", index, len(s.children))
	}
	return s.children[index], nil
}

// Behavior implementation.

func (s *Sequence) Execute() error {
	return s.runForward()
}

func (s *Sequence) Rollback(reason *RollbackReason) error {
	s.childMu.Lock()
	s.backward = s.reached
	s.childMu.Unlock()
	return s.runBackward(reason)
}

func (s *Sequence) HandlePause() error { return nil }

func (s *Sequence) ResumeExecution() error {
	return s.runForward()
}

func (s *Sequence) ResumeRollback() error {
	return s.runBackward(s.failureReason())
}

// runForward starts children one at a time by ascending index. A child's
// failure cancels upward and flips this composite's state before the loop
// notices; the state check at the top of the loop is the sole control point
// that halts forward progress.
func (s *Sequence) runForward() error {
	for {
		if s.State() != StateRunning {
			return nil
		}

		s.childMu.Lock()
		if s.forward >= len(s.children) {
			s.childMu.Unlock()
			return nil
		}
		child := s.children[s.forward]
		s.reached = s.forward
		s.forward++
		total := len(s.children)
		s.childMu.Unlock()

		if err := child.Start(); err != nil {
			return err
		}
		s.SetProgress(float64(s.forward) / float64(total))
	}
}

// runBackward cancels started children by descending index, beginning at the
// last index the forward walk reached. Children whose Start never ran are
// skipped entirely; a child whose own cancellation already completed is a
// no-op by idempotency.
func (s *Sequence) runBackward(reason *RollbackReason) error {
	for {
		if s.State() != StateRollbacking {
			return nil
		}

		s.childMu.Lock()
		if len(s.children) == 0 || s.backward < 0 {
			s.childMu.Unlock()
			return nil
		}
		if s.backward >= len(s.children) {
			s.backward = len(s.children) - 1
		}
		child := s.children[s.backward]
		s.backward--
		s.childMu.Unlock()

		if !child.RequiresRollback() {
			continue
		}
		if err := child.Cancel(reason); err != nil {
			return err
		}
	}
}
