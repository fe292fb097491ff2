// Package adminsession holds the in-memory admin session table.
//
// Sessions never survive a restart; an opaque token grants admin capability
// only while present here. Handlers run on arbitrary goroutines, so the map
// is mutex-guarded and expired entries are swept in the background.
package adminsession

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session tracks one admin login.
type Session struct {
	CreatedAt    time.Time
	LastActivity time.Time
}

// Store is a process-scoped token -> session map with TTL expiry.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create registers a new session and returns its opaque token.
func (s *Store) Create() string {
	token := uuid.NewString()
	now := s.now()
	s.mu.Lock()
	s.sessions[token] = &Session{CreatedAt: now, LastActivity: now}
	s.mu.Unlock()
	return token
}

// Validate reports whether the token maps to a live session and refreshes its
// activity timestamp. Expired sessions are removed on sight.
func (s *Store) Validate(token string) bool {
	if token == "" {
		return false
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return false
	}
	if now.Sub(sess.LastActivity) > s.ttl {
		delete(s.sessions, token)
		return false
	}
	sess.LastActivity = now
	return true
}

// Delete removes the session for the token, if any.
func (s *Store) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Len returns the number of live sessions. Used by tests and diagnostics.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartSweeper evicts expired sessions periodically until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *Store) sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, sess := range s.sessions {
		if now.Sub(sess.LastActivity) > s.ttl {
			delete(s.sessions, token)
		}
	}
}
