package track

import "sync"

// trackLocks hands out one RWMutex per track id. Locks are created on
// first use and kept for the life of the service.
type trackLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func (l *trackLocks) get(trackID string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.RWMutex)
	}
	m, ok := l.locks[trackID]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[trackID] = m
	}
	return m
}

// write locks trackID for writing and returns the unlock func.
func (l *trackLocks) write(trackID string) func() {
	m := l.get(trackID)
	m.Lock()
	return m.Unlock
}

// read locks trackID for reading and returns the unlock func.
func (l *trackLocks) read(trackID string) func() {
	m := l.get(trackID)
	m.RLock()
	return m.RUnlock
}
