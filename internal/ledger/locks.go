package ledger

import "sync"

// lockTable hands out one mutex per key so seal/reclaim pairs touching the
// same property or tenant slot serialize without a whole-ledger lock. Lock
// entries are never reclaimed; the key space is bounded by the number of
// properties and tenants seen by the process.
type lockTable[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*sync.Mutex
}

// lock acquires the mutex for key and returns its unlock function
func (t *lockTable[K]) lock(key K) func() {
	t.mu.Lock()
	if t.locks == nil {
		t.locks = make(map[K]*sync.Mutex)
	}
	m, ok := t.locks[key]
	if !ok {
		m = &sync.Mutex{}
		t.locks[key] = m
	}
	t.mu.Unlock()

	m.Lock()
	return m.Unlock
}
