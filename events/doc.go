// Package events turns terminal process outcomes into publishable lifecycle
// events.
//
// An Emitter is attached to any component in a process tree as a regular
// listener; when that subtree succeeds or fails, the emitter builds a
// ProcessSucceededEvent or ProcessFailedEvent and hands it to a Publisher.
// Publishing is best effort: a failing publisher is logged and never alters
// the outcome of the process itself.
package events
