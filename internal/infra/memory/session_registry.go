package memory

import (
	"sync"

	"aic-scoring-service/internal/app"
)

// SessionRegistry is the in-memory implementation of app.SessionRepository.
// The registry lock only guards the map; per-question serialization lives
// inside app.Session itself.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*app.Session),
	}
}

// Put installs a fresh session for a question, replacing any prior cycle.
func (r *SessionRegistry) Put(questionID string, session *app.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[questionID] = session
}

func (r *SessionRegistry) Get(questionID string) (*app.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[questionID]
	return session, ok
}

// All returns a copy of the registry map; sessions themselves stay shared.
func (r *SessionRegistry) All() map[string]*app.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*app.Session, len(r.sessions))
	for id, session := range r.sessions {
		out[id] = session
	}
	return out
}

// Reset drops every session and returns how many were cleared.
func (r *SessionRegistry) Reset() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.sessions)
	r.sessions = make(map[string]*app.Session)
	return n
}
