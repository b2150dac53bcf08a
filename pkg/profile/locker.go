package profile

import "sync"

// Locker serializes mutations of a single visitor profile inside this process.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*visitorLock
}

type visitorLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*visitorLock)}
}

// Lock blocks until the visitor's lock is held and returns its release func.
func (l *Locker) Lock(visitorID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[visitorID]
	if !ok {
		entry = &visitorLock{}
		l.locks[visitorID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, visitorID)
		}
		l.mu.Unlock()
	}
}
