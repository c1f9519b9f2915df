package concurrency

import "sync"

// SessionLocks serializes turn processing per session: a later turn's
// contextualization depends on the previous turn's recorded messages, so the
// lock is held for the full duration of one turn. Turns on different
// sessions proceed concurrently.
type SessionLocks struct {
	locks sync.Map // session id -> *sync.Mutex
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{}
}

func (l *SessionLocks) Lock(sessionID string) {
	mu, _ := l.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
}

func (l *SessionLocks) Unlock(sessionID string) {
	if mu, ok := l.locks.Load(sessionID); ok {
		mu.(*sync.Mutex).Unlock()
	}
}
