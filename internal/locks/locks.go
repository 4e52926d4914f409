// Package locks provides the per-session mutual exclusion gate guarding
// deck mutations. Locks are process-wide, ephemeral, and never persisted:
// a mutating operation either acquires its session's lock immediately or
// fails with ErrSessionBusy. Reads never take a lock.
package locks

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrSessionBusy means another mutation holds the session's lock. Callers
// surface it as a retry-later condition, not a server fault.
var ErrSessionBusy = errors.New("session is busy with another edit")

// SessionLocks is a registry of held session locks. Safe for concurrent use.
type SessionLocks struct {
	mu   sync.Mutex
	held map[string]time.Time // sessionID -> heldSince
}

// New creates an empty lock registry.
func New() *SessionLocks {
	return &SessionLocks{held: make(map[string]time.Time)}
}

// TryAcquire takes the session's lock if it is free. It never blocks.
func (l *SessionLocks) TryAcquire(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if since, ok := l.held[sessionID]; ok {
		log.Debug().
			Str("sessionId", sessionID).
			Time("heldSince", since).
			Msg("Session lock busy")
		return false
	}
	l.held[sessionID] = time.Now()
	return true
}

// Release frees the session's lock. Releasing an unheld lock is a no-op so
// deferred releases are safe on every exit path.
func (l *SessionLocks) Release(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, sessionID)
}

// Held reports whether the session's lock is currently taken.
func (l *SessionLocks) Held(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[sessionID]
	return ok
}
