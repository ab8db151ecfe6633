// Package session pools HTTP sessions against the subscriber portal.
//
// The portal ties its login state to cookies, so each login key gets its own
// Handle with a private cookie jar. A Handle is created on first use, reused
// by later attempts for the same key, and closed by SweepExpired once it has
// been idle for longer than the pool TTL. There is no Release: callers simply
// stop using the handle.
//
// Two goroutines that Acquire the same key share one transport. Within a
// bulk job a login key has a single owner, so this is not guarded.
package session
