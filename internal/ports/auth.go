package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"

	"golang.org/x/oauth2"

	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
)

// ErrSessionNotFound is returned by SessionStore implementations when no record exists.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists and retrieves console sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// AccessTokenWriter replaces only the access token of a stored session and keeps its
// expiry. It returns ErrSessionNotFound instead of recreating a deleted session.
type AccessTokenWriter interface {
	SetAccessToken(ctx context.Context, id, token string) error
}

// ClaimsReader derives identity claims from an opaque access token.
type ClaimsReader interface {
	Read(accessToken string) (Claims, error)
}

// Claims is the subset of access-token claims the console cares about.
type Claims struct {
	Subject string
	Role    domainauth.Role
}

// AuthBackend is the subset of the SIMS backend used for sign-in flows.
// *apiclient.Client satisfies it.
type AuthBackend interface {
	Login(ctx context.Context, username, password string) (*oauth2.Token, error)
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
}
