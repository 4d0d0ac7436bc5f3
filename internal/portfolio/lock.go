package portfolio

import "sync"

// LockRegistry hands out one mutex per portfolio key so read-modify-write
// cycles on the same record never interleave. Entries are dropped once no
// goroutine holds or waits on them.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLockRegistry creates an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*lockEntry)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (r *LockRegistry) Lock(key string) (unlock func()) {
	r.mu.Lock()
	e, ok := r.locks[key]
	if !ok {
		e = &lockEntry{}
		r.locks[key] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		r.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}
}

// Len reports how many keys currently have a live lock entry.
func (r *LockRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
