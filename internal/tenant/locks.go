package tenant

import "sync"

// Locks is a table of per-tenant read/write locks.
//
// Index rebuilds and other mutations of a tenant's storage hold the write
// lock; index reads hold the read lock. Different tenants never contend.
// Entries are reference counted and dropped once no holder or waiter remains.
type Locks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	rw   sync.RWMutex
	refs int
}

// NewLocks creates an empty lock table.
func NewLocks() *Locks {
	return &Locks{entries: make(map[string]*lockEntry)}
}

func (l *Locks) acquire(id string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok {
		e = &lockEntry{}
		l.entries[id] = e
	}
	e.refs++
	return e
}

func (l *Locks) release(id string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}

// Lock takes the tenant's exclusive lock and returns its release func.
func (l *Locks) Lock(id string) (unlock func()) {
	e := l.acquire(id)
	e.rw.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.rw.Unlock()
			l.release(id, e)
		})
	}
}

// RLock takes the tenant's shared lock and returns its release func.
func (l *Locks) RLock(id string) (unlock func()) {
	e := l.acquire(id)
	e.rw.RLock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.rw.RUnlock()
			l.release(id, e)
		})
	}
}

// Len returns the number of tenants with a live lock entry.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
