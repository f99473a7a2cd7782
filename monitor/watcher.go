package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/glimte/procflow-go/process"
)

// Change describes an observed transition of the watched component.
type Change struct {
	State    process.State
	Progress float64
	At       time.Time
}

// Watcher polls a component at a fixed interval and reports state and
// progress transitions. It is meant for operational visibility of
// long-running trees; correctness-critical observation belongs in listeners.
type Watcher struct {
	root     process.Component
	interval time.Duration
	logger   *slog.Logger
	onChange func(Change)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval.
func WithInterval(interval time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.interval = interval
	}
}

// WithWatcherLogger sets the logger transitions are reported to.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithOnChange installs a callback invoked for every observed transition,
// on the watcher's own goroutine.
func WithOnChange(fn func(Change)) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// NewWatcher creates a watcher over the given component.
func NewWatcher(root process.Component, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:     root,
		interval: time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch blocks until the component reaches a terminal state or the context
// is cancelled, reporting every observed transition along the way. Because
// it polls, transitions faster than the interval may be missed; the terminal
// outcome never is.
func (w *Watcher) Watch(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last := w.observe(Change{})
	if last.State.IsTerminal() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			current := w.observe(last)
			if current.State.IsTerminal() {
				return nil
			}
			last = current
		}
	}
}

func (w *Watcher) observe(last Change) Change {
	current := Change{
		State:    w.root.State(),
		Progress: w.root.Progress(),
		At:       time.Now(),
	}
	if current.State == last.State && current.Progress == last.Progress {
		return current
	}

	w.logger.Info("process state changed",
		"componentId", w.root.ID(),
		"name", w.root.Name(),
		"state", current.State,
		"progress", current.Progress)
	if w.onChange != nil {
		w.onChange(current)
	}
	return current
}
