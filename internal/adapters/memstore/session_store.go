// Package memstore provides an in-process session store for development and tests.
package memstore

import (
	"context"
	"errors"
	"sync"
	"time"

	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
	"github.com/Vignesh6104/sims-console/internal/ports"
)

// SessionStore keeps sessions in a map. Sessions are dropped lazily once expired.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domainauth.Session
	now      func() time.Time
}

var (
	_ ports.SessionStore      = (*SessionStore)(nil)
	_ ports.AccessTokenWriter = (*SessionStore)(nil)
)

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domainauth.Session),
		now:      time.Now,
	}
}

func (m *SessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *SessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}

	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}

	if !sess.ExpiresAt.IsZero() && m.now().After(sess.ExpiresAt) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

// SetAccessToken updates the access token of a live session.
func (m *SessionStore) SetAccessToken(_ context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok || (!sess.ExpiresAt.IsZero() && m.now().After(sess.ExpiresAt)) {
		return ports.ErrSessionNotFound
	}
	sess.AccessToken = token
	m.sessions[id] = sess
	return nil
}

func (m *SessionStore) Delete(_ context.Context, id string) error {
	if id == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *SessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
