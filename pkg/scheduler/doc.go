// Package scheduler provides the cooperative, single-threaded tick loop that
// drives every lifecycle operation.
//
// Work that must wait across frames is expressed as a Task and polled once
// per Tick. Only Post may be called from other goroutines; everything else
// belongs to the goroutine that calls Tick.
package scheduler
