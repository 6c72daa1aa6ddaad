// Package tokenclaims reads identity claims from backend-issued JWT access tokens.
package tokenclaims

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
	"github.com/Vignesh6104/sims-console/internal/ports"
)

// ErrNoRole is returned when the token carries no recognizable role claim.
var ErrNoRole = errors.New("access token has no recognizable role")

// accessClaims is the claim set the SIMS backend puts in access tokens.
// Older tokens carry the role as user_type.
type accessClaims struct {
	Role     string `json:"role"`
	UserType string `json:"user_type"`
	UserID   any    `json:"user_id"`
	jwt.RegisteredClaims
}

// Reader implements ports.ClaimsReader.
// With a secret it verifies HS256 signatures; without one it only decodes the payload,
// which is enough because the console never grants access on its own: the backend
// re-checks every forwarded token.
type Reader struct {
	secret []byte
	parser *jwt.Parser
}

var _ ports.ClaimsReader = (*Reader)(nil)

// NewReader builds a Reader. An empty secret disables signature verification.
func NewReader(secret string) *Reader {
	return &Reader{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Read decodes the access token and extracts subject and role.
func (r *Reader) Read(accessToken string) (ports.Claims, error) {
	raw := strings.TrimSpace(accessToken)
	if raw == "" {
		return ports.Claims{}, errors.New("empty access token")
	}

	claims := &accessClaims{}
	if len(r.secret) > 0 {
		if _, err := r.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return r.secret, nil
		}); err != nil {
			return ports.Claims{}, fmt.Errorf("verify access token: %w", err)
		}
	} else if _, _, err := r.parser.ParseUnverified(raw, claims); err != nil {
		return ports.Claims{}, fmt.Errorf("decode access token: %w", err)
	}

	role, ok := domainauth.ParseRole(claims.Role)
	if !ok {
		role, ok = domainauth.ParseRole(claims.UserType)
	}
	if !ok {
		return ports.Claims{}, ErrNoRole
	}

	subject := claims.Subject
	if subject == "" && claims.UserID != nil {
		subject = fmt.Sprint(claims.UserID)
	}

	return ports.Claims{Subject: subject, Role: role}, nil
}
