// Package audio plays sound clips on voices drawn from a resource pool.
// Playback itself is simulated in ticks; the package exists to own voice
// churn.
package audio
