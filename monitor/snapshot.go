package monitor

import (
	"github.com/glimte/procflow-go/process"
)

// Snapshot is a point-in-time capture of a component and its subtree.
type Snapshot struct {
	ID       string        `json:"id"`
	Name     string        `json:"name,omitempty"`
	State    process.State `json:"state"`
	Progress float64       `json:"progress"`
	Children []Snapshot    `json:"children,omitempty"`
}

// componentLister is satisfied by composites.
type componentLister interface {
	Components() []process.Component
}

// wrapper is satisfied by decorators.
type wrapper interface {
	Wrapped() process.Component
}

// Capture walks a component tree and records state and progress of every
// node. Composites contribute their children, decorators the component they
// wrap. The capture is not atomic across the tree: states may move while the
// walk is in progress.
func Capture(c process.Component) Snapshot {
	snapshot := Snapshot{
		ID:       c.ID(),
		Name:     c.Name(),
		State:    c.State(),
		Progress: c.Progress(),
	}
	switch node := c.(type) {
	case componentLister:
		for _, child := range node.Components() {
			snapshot.Children = append(snapshot.Children, Capture(child))
		}
	case wrapper:
		snapshot.Children = append(snapshot.Children, Capture(node.Wrapped()))
	}
	return snapshot
}

// Terminal reports whether every node in the snapshot has reached a terminal
// state.
func (s Snapshot) Terminal() bool {
	if !s.State.IsTerminal() {
		return false
	}
	for _, child := range s.Children {
		if !child.Terminal() {
			return false
		}
	}
	return true
}
