// Package keylock serializes writers on a per-key basis. The disk cache is
// append-only per entry, so two concurrent writers to the same key must take
// the lock before the read-modify-write; writers to distinct keys never block
// each other. Local covers a single process, Redis covers a fleet sharing one
// cache directory.
package keylock

import "context"

// Locker acquires an exclusive lock for a key. The returned release function
// must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
