// Package progression holds the ordered catalog of levels a session moves
// through.
package progression
