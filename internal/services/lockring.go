package services

import "sync"

// Lockring hands out one mutex per resource id so that join, notify,
// convert, remove and sweep cascades are serialized per resource while
// different resources proceed in parallel. SQLite gives us no SELECT FOR
// UPDATE, so the read-MAX-then-insert position assignment must be fenced
// here, in process.
type Lockring struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLockring() *Lockring {
	return &Lockring{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for a resource and returns its unlock func.
func (r *Lockring) Lock(resourceID string) func() {
	r.mu.Lock()
	m, ok := r.locks[resourceID]
	if !ok {
		m = &sync.Mutex{}
		r.locks[resourceID] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}
