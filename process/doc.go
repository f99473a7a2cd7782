// Package process composes multi-step operations into a tree and executes
// that tree with automatic, ordered compensation on failure.
//
// A process tree is built from components: leaves (Step) carry the business
// logic, composites (Sequence) sequence their children strictly left to
// right, and decorators (Async) wrap a single component to add behavior such
// as background execution. When any component fails, the cancellation
// cascades to the root of the active ancestor chain first and the completed
// work is then rolled back strictly right to left, so the whole tree behaves
// as "all steps succeed or all completed steps are undone".
//
// Key features:
//   - Explicit component state machine with pause and resume
//   - Strict left-to-right execution, right-to-left compensation
//   - Cascading cancellation: one cancel rolls back the whole active subtree
//   - Background execution of independent subtrees via Async wrappers
//   - Listener notification of terminal outcomes, late subscribers included
//   - Retrying leaves backed by pluggable retry policies
//
// Basic usage:
//
//	seq := process.NewSequence("order")
//	seq.Add(process.NewFuncStep("reserve", reserve, release))
//	seq.Add(process.NewFuncStep("charge", charge, refund))
//
//	if err := seq.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	if seq.State() == process.StateFailed {
//	    // completed steps have been rolled back in reverse order
//	}
//
// Callers that do not attach listeners pair Await with State to detect
// failure; execution failures never surface as errors from Start.
package process
