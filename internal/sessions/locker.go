package sessions

import (
	"context"
	"sync"
)

// SessionLocker serializes access to individual sessions. A run holds
// its session's lock for the whole batch, including while the provider
// call is in flight, so interleaved appends from concurrent runs cannot
// corrupt turn ordering. Distinct sessions proceed independently.
//
// Lock entries are reference counted and removed once the last waiter
// releases, so the map does not grow with the number of sessions seen.
type SessionLocker struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	sem  chan struct{}
	refs int
}

// NewSessionLocker creates a session locker.
func NewSessionLocker() *SessionLocker {
	return &SessionLocker{locks: map[string]*sessionLock{}}
}

// Acquire blocks until the session lock is held or ctx is done. On
// success it returns a release function that must be called exactly
// once; calling it more than once is a no-op.
func (l *SessionLocker) Acquire(ctx context.Context, sessionID string) (func(), error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}

	l.mu.Lock()
	entry, ok := l.locks[sessionID]
	if !ok {
		entry = &sessionLock{sem: make(chan struct{}, 1)}
		l.locks[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.put(sessionID, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-entry.sem
			l.put(sessionID, entry)
		})
	}
	return release, nil
}

func (l *SessionLocker) put(sessionID string, entry *sessionLock) {
	l.mu.Lock()
	entry.refs--
	if entry.refs <= 0 {
		delete(l.locks, sessionID)
	}
	l.mu.Unlock()
}
