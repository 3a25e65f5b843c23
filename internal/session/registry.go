package session

import (
	"sync"
	"time"
)

// Identity is the read-only seed supplied by the identity provider at
// session start. Once seeded, name and email are treated as known and are
// never re-asked.
type Identity struct {
	Name  string
	Email string
}

// Session owns the conversation state for one user conversation. Turns are
// processed strictly one at a time: callers hold the session lock for the
// full duration of a turn.
type Session struct {
	ID       string
	Identity Identity

	mu    sync.Mutex
	state State

	// lastDispatched fingerprints the most recent completed booking so a
	// duplicate submission of the same turn cannot dispatch twice. Cleared
	// once the slot is freed again by a cancellation.
	lastDispatched string

	lastActivity time.Time
}

// Lock serializes turns within the session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the turn lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// State returns the mutable conversation state. Callers must hold the
// session lock.
func (s *Session) State() *State { return &s.state }

// Touch records activity for idle cleanup.
func (s *Session) Touch(now time.Time) { s.lastActivity = now }

// MarkDispatched records the fingerprint of a completed, dispatched action.
func (s *Session) MarkDispatched(fingerprint string) {
	s.lastDispatched = fingerprint
}

// AlreadyDispatched reports whether this exact completion was already
// dispatched. It guards against re-entrant duplicate dispatch.
func (s *Session) AlreadyDispatched(fingerprint string) bool {
	return fingerprint != "" && s.lastDispatched == fingerprint
}

// ClearDispatchGuard forgets the last dispatch fingerprint. Called after a
// cancellation, so an identical rebooking of the freed slot is not mistaken
// for a duplicate.
func (s *Session) ClearDispatchGuard() {
	s.lastDispatched = ""
}

// Registry hands out one session per conversation. Sessions are never
// shared across conversations, which keeps identity fields isolated.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	seed     func(sessionID string) Identity
}

// NewRegistry creates a registry. seed may be nil when no identity provider
// is configured.
func NewRegistry(seed func(sessionID string) Identity) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		seed:     seed,
	}
}

// Get returns the session for id, creating and identity-seeding it on first
// use.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}

	s = &Session{ID: id, lastActivity: time.Now()}
	if r.seed != nil {
		s.Identity = r.seed(id)
		s.state.Merge(Partial{Name: s.Identity.Name, Email: s.Identity.Email})
	}
	r.sessions[id] = s
	return s
}

// Drop removes a session, discarding its state.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len reports how many sessions are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
