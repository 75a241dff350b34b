// Package pool provides a generic object pool that splits instances into an
// active set owned by callers and an inactive set parked by the pool.
//
// A Pool is not safe for concurrent use. It is intended to be driven from the
// single scheduler goroutine, like the rest of the runtime.
package pool
