package keylock

import (
	"context"
	"sync"
)

type localEntry struct {
	mu   sync.Mutex
	refs int
}

// Local implements in-process per-key locking with a refcounted mutex map.
// Entries are removed once the last holder releases, so the map stays
// proportional to the number of keys currently contended.
type Local struct {
	mu      sync.Mutex
	entries map[string]*localEntry
}

var _ Locker = (*Local)(nil)

func NewLocal() *Local {
	return &Local{entries: make(map[string]*localEntry)}
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	e := l.entries[key]
	if e == nil {
		e = &localEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.entries, key)
			}
			l.mu.Unlock()
		})
	}
	return release, nil
}
