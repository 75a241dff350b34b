// Package scene models scene loading as seen by the lifecycle layer: a load
// is started and its handle is polled once per tick until done.
//
// TickLoader is an in-process loader whose loads take a fixed number of
// ticks. Preloader is an app system that loads a list of scenes additively
// during one-time setup.
package scene
