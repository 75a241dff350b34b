// Package saves persists player save records in SQLite and exposes them to
// the session layer through an app system that keeps every record in memory.
package saves
