// Package scheduler provides the time-based scheduling primitives used by the
// editor core: a coalescing Debouncer and a cancellable Interval.
//
// # Why Scheduler Exists
//
// Two behaviours of the editor are driven by wall-clock time rather than by
// user calls:
//   - **Cost recomputation** is coalesced so a burst of edits produces one
//     price lookup, using the state as of the last edit
//   - **Proximity auto-connect** samples handle positions on a fixed period
//     while the user holds a modifier during a drag
//
// Both run callbacks on timer goroutines, so both primitives are explicit,
// owned objects that are stopped on teardown. Nothing in this package keeps
// global state.
//
// # Relationship with Other Components
//
//   - **cost.Estimator** owns a Debouncer
//   - **connect.Proximity** owns an Interval
package scheduler

// Scheduler is implemented by both primitives so owners can stop them
// uniformly on teardown.
type Scheduler interface {
	// Stop cancels any pending or periodic work. It is safe to call more than
	// once. A callback that is already running is not interrupted.
	Stop()
}
