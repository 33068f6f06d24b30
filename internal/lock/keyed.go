// Package lock provides a mutex keyed by identifier.  The inventory
// serializes seat mutation per event and the ledger serializes
// transitions per booking with it, so two actors racing for the same
// resource always observe each other's writes.
package lock

import "sync"

// Keyed hands out one mutex per key.  Mutexes are created on first
// use and kept for the lifetime of the process; the key space here is
// event and booking IDs, which is small enough that no eviction is
// needed.
type Keyed struct {
	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

// NewKeyed returns an empty keyed mutex set.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[uint64]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it if needed.
func (k *Keyed) Lock(key uint64) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
}

// Unlock releases the mutex for key.  Calling Unlock for a key that
// was never locked panics, same as sync.Mutex.
func (k *Keyed) Unlock(key uint64) {
	k.mu.Lock()
	m := k.locks[key]
	k.mu.Unlock()
	m.Unlock()
}
