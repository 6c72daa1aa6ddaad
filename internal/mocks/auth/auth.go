package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/Vignesh6104/sims-console/internal/apiclient"
	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
	"github.com/Vignesh6104/sims-console/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthBackend  = (*MockAuthBackend)(nil)
	_ ports.ClaimsReader = StaticClaimsReader{}
)

// Account is a user known to MockAuthBackend.
type Account struct {
	Password string
	Role     domainauth.Role
	UserID   string
}

// MockAuthBackend simulates the SIMS backend sign-in endpoints with deterministic tokens.
type MockAuthBackend struct {
	LoginFunc         func(ctx context.Context, username, password string) (*oauth2.Token, error)
	ResetPasswordFunc func(ctx context.Context, token, newPassword string) (string, error)

	// Accounts keyed by username. Unknown users and wrong passwords get a backend-style 401.
	Accounts map[string]Account
	// ResetTokens lists reset tokens accepted by ResetPassword.
	ResetTokens map[string]bool

	mu        sync.Mutex
	callCount int
}

// NewMockAuthBackend creates a MockAuthBackend with one account per role.
func NewMockAuthBackend() *MockAuthBackend {
	return &MockAuthBackend{
		Accounts: map[string]Account{
			"admin":   {Password: "admin-pass1", Role: domainauth.RoleAdmin, UserID: "1"},
			"teacher": {Password: "teacher-pass1", Role: domainauth.RoleTeacher, UserID: "2"},
			"parent":  {Password: "parent-pass1", Role: domainauth.RoleParent, UserID: "3"},
			"student": {Password: "student-pass1", Role: domainauth.RoleStudent, UserID: "4"},
		},
		ResetTokens: map[string]bool{"reset-ok": true},
	}
}

func (m *MockAuthBackend) Login(ctx context.Context, username, password string) (*oauth2.Token, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password)
	}

	acct, ok := m.Accounts[username]
	if !ok || acct.Password != password {
		return nil, &apiclient.HTTPError{
			Method: http.MethodPost,
			Path:   apiclient.PathLogin,
			Status: http.StatusUnauthorized,
			Body:   []byte(`{"detail":"Incorrect username or password"}`),
		}
	}

	m.mu.Lock()
	m.callCount++
	n := m.callCount
	m.mu.Unlock()

	tok := &oauth2.Token{
		AccessToken:  "access-" + username + "-" + strconv.Itoa(n),
		RefreshToken: "refresh-" + username + "-" + strconv.Itoa(n),
		TokenType:    "bearer",
		Expiry:       time.Now().Add(15 * time.Minute),
	}
	return tok.WithExtra(map[string]any{
		"role":    string(acct.Role),
		"user_id": acct.UserID,
	}), nil
}

func (m *MockAuthBackend) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, newPassword)
	}
	if !m.ResetTokens[token] {
		return "", &apiclient.HTTPError{
			Method: http.MethodPost,
			Path:   apiclient.PathResetPassword,
			Status: http.StatusBadRequest,
			Body:   []byte(`{"detail":"Invalid or expired token"}`),
		}
	}
	if newPassword == "" {
		return "", errors.New("empty password")
	}
	return "Password updated successfully", nil
}

// Calls returns how many successful logins were served.
func (m *MockAuthBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// StaticClaimsReader returns fixed claims for every token.
type StaticClaimsReader struct {
	Claims ports.Claims
	Err    error
}

func (r StaticClaimsReader) Read(string) (ports.Claims, error) {
	return r.Claims, r.Err
}
