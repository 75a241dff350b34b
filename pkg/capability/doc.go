// Package capability defines the lifecycle contracts that pluggable systems
// implement and resolves configured system references into those contracts.
//
// A system is referenced either as a live behavior (any value that is
// expected to implement a capability) or as a static data instance that is
// itself a capability implementation. Both kinds resolve through Resolve,
// which reports a configuration error when the designated source is missing
// or does not implement the requested capability.
package capability
