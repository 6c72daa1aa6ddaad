// Package session holds the runtime session-state object shared by the API client and the route guard.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
	"github.com/Vignesh6104/sims-console/internal/ports"
)

// Snapshot is a point-in-time view of the session used for routing decisions.
type Snapshot struct {
	Loading bool
	Token   string
	Role    domainauth.Role
	UserID  string
}

// State is the explicit session-state object for one console session.
// It starts in the loading state until Hydrate completes, and it writes
// token changes back to the backing store. It is safe for concurrent use.
type State struct {
	store ports.SessionStore
	id    string

	mu      sync.RWMutex
	loading bool
	sess    domainauth.Session
}

// New returns a State for the session id that has not been hydrated yet.
// An empty id yields a state that hydrates to signed-out.
func New(store ports.SessionStore, id string) *State {
	return &State{store: store, id: id, loading: true}
}

// NewLoaded returns a hydrated State wrapping a session that was just created (e.g. at login).
func NewLoaded(store ports.SessionStore, sess domainauth.Session) *State {
	return &State{store: store, id: sess.ID, sess: sess}
}

// ID returns the session identifier this state is bound to.
func (s *State) ID() string { return s.id }

// Hydrate loads the persisted session. A missing record hydrates to signed-out.
// Any other store failure leaves the state loading and is returned to the caller.
func (s *State) Hydrate(ctx context.Context) error {
	if s.id == "" || s.store == nil {
		s.setHydrated(domainauth.Session{})
		return nil
	}

	sess, err := s.store.Get(ctx, s.id)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			s.setHydrated(domainauth.Session{})
			return nil
		}
		return fmt.Errorf("hydrate session: %w", err)
	}

	s.setHydrated(sess)
	return nil
}

func (s *State) setHydrated(sess domainauth.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
	s.loading = false
}

// Snapshot returns the fields consulted by the route guard.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Loading: s.loading,
		Token:   s.sess.AccessToken,
		Role:    s.sess.Role,
		UserID:  s.sess.UserID,
	}
}

// AccessToken returns the current access token, or "" when signed out.
func (s *State) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.AccessToken
}

// RefreshToken returns the current refresh token, or "" when absent.
func (s *State) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.RefreshToken
}

// SetAccessToken overwrites the access token and persists it. Stores that can write
// the token alone do so and never recreate a session deleted meanwhile.
// The in-memory value is updated even if persisting fails.
func (s *State) SetAccessToken(ctx context.Context, token string) error {
	s.mu.Lock()
	s.sess.AccessToken = token
	sess := s.sess
	s.mu.Unlock()

	if s.store == nil || s.id == "" {
		return nil
	}

	var err error
	if w, ok := s.store.(ports.AccessTokenWriter); ok {
		err = w.SetAccessToken(ctx, s.id, token)
	} else {
		err = s.store.Save(ctx, sess)
	}
	if err != nil {
		return fmt.Errorf("persist access token: %w", err)
	}
	return nil
}

// Clear drops both tokens and the role, and deletes the persisted session.
func (s *State) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.sess = domainauth.Session{ID: s.id}
	s.loading = false
	s.mu.Unlock()

	if s.store == nil || s.id == "" {
		return nil
	}
	if err := s.store.Delete(ctx, s.id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
