// Package signals is a synchronous in-process notification bus. Handlers
// run on the firing goroutine, in subscription order, and only handlers
// subscribed when Fire is called see the event.
package signals
