// Package lifecycle brings systems online and offline in a controlled order.
//
// AppController runs once per process. It resolves the configured app
// systems, issues every OneTimeSetup, and waits on the scheduler until all
// of them report completion before loading the lobby and signalling
// app.setup_completed.
//
// SessionController is one of those app systems. It moves between Idle,
// Loading, Active and Unloading as sessions are entered, levels are
// swapped and sessions are exited. At most one scene load is in flight at a
// time; any transition requested while one is pending, or from the wrong
// phase, fails with a precondition error.
//
// Both controllers expect to be driven from the scheduler goroutine.
// Neither has a timeout: a system that never completes setup stalls the
// app controller indefinitely.
package lifecycle
