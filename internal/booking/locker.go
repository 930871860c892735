package booking

import "sync"

// lockTable hands out one mutex per resource id so booking and cancellation
// on the same resource are linearized while different resources proceed in
// parallel.  Entries are reference counted and removed once the last holder
// releases, so the table stays bounded by the number of resources under
// concurrent write at any instant.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*resourceLock
}

type resourceLock struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*resourceLock)}
}

// acquire blocks until the caller holds the lock for key and returns the
// release function.  The release must run on every exit path; callers defer
// it immediately.
func (t *lockTable) acquire(key string) func() {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &resourceLock{}
		t.locks[key] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, key)
		}
		t.mu.Unlock()
	}
}
