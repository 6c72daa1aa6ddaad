package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
	apperrors "github.com/Vignesh6104/sims-console/internal/errors"
	"github.com/Vignesh6104/sims-console/internal/ports"
	"github.com/Vignesh6104/sims-console/internal/session"
	"github.com/Vignesh6104/sims-console/internal/validation"
)

// DefaultSessionTTL bounds how long a console session lives without a new sign-in.
const DefaultSessionTTL = 7 * 24 * time.Hour

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Backend    ports.AuthBackend
	Sessions   ports.SessionStore
	Claims     ports.ClaimsReader
	Validator  *validation.Validator
	SessionTTL time.Duration
	Logger     *slog.Logger
}

// AuthService orchestrates sign-in by coordinating the backend, claims decoding, and session persistence.
type AuthService struct {
	backend   ports.AuthBackend
	sessions  ports.SessionStore
	claims    ports.ClaimsReader
	validator *validation.Validator
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	v := opts.Validator
	if v == nil {
		v = validation.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		backend:   opts.Backend,
		sessions:  opts.Sessions,
		claims:    opts.Claims,
		validator: v,
		ttl:       ttl,
		logger:    logger.With("component", "auth_service"),
		now:       time.Now,
	}
}

// LoginInput is the sign-in form.
type LoginInput struct {
	Username string `form:"username" validate:"notblank,max=150"`
	Password string `form:"password" validate:"required,max=256"`
}

// LoginResult contains the session created by a successful sign-in.
type LoginResult struct {
	Session domainauth.Session
}

// Login exchanges credentials at the backend, determines the caller's role, and persists a session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate(in); err != nil {
		return nil, err
	}

	tok, err := s.backend.Login(ctx, in.Username, in.Password)
	if err != nil {
		mapped := apperrors.MapUpstreamError(err)
		if apperrors.IsUnauthorized(mapped) || apperrors.IsValidation(mapped) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "Invalid username or password.")
		}
		return nil, mapped
	}

	role, userID, err := s.identify(tok)
	if err != nil {
		return nil, err
	}

	sess := domainauth.Session{
		ID:           generateSessionID(),
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Role:         role,
		ExpiresAt:    s.now().Add(s.ttl),
	}

	if saveErr := s.sessions.Save(ctx, sess); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}

	s.logger.InfoContext(ctx, "user signed in", "user_id", userID, "role", role)
	return &LoginResult{Session: sess}, nil
}

// identify resolves role and user id from the login response, falling back to access-token claims.
func (s *AuthService) identify(tok *oauth2.Token) (domainauth.Role, string, error) {
	var (
		role   domainauth.Role
		ok     bool
		userID string
	)
	if raw, isStr := tok.Extra("role").(string); isStr {
		role, ok = domainauth.ParseRole(raw)
	}
	if v := tok.Extra("user_id"); v != nil {
		userID = fmt.Sprint(v)
	}

	if (!ok || userID == "") && s.claims != nil {
		claims, err := s.claims.Read(tok.AccessToken)
		switch {
		case err == nil:
			if !ok {
				role, ok = claims.Role, claims.Role.Valid()
			}
			if userID == "" {
				userID = claims.Subject
			}
		case !ok:
			return "", "", apperrors.Wrap(err, apperrors.ErrCodeForbidden, "This account has no console role.")
		}
	}

	if !ok {
		return "", "", apperrors.Forbidden("This account has no console role.")
	}
	return role, userID, nil
}

// OpenSession returns an unhydrated session state bound to sessionID.
func (s *AuthService) OpenSession(sessionID string) *session.State {
	return session.New(s.sessions, sessionID)
}

// Logout removes a session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// ResetPasswordInput is the password reset form.
type ResetPasswordInput struct {
	Token           string `form:"token" validate:"notblank"`
	NewPassword     string `form:"new_password" validate:"min=8,max=128,strongpassword"`
	ConfirmPassword string `form:"confirm_password" validate:"eqfield=NewPassword"`
}

// ResetPassword validates the form and submits the reset to the backend.
// It returns the backend's confirmation message.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) (string, error) {
	in.Token = strings.TrimSpace(in.Token)
	if err := s.validate(in); err != nil {
		return "", err
	}

	msg, err := s.backend.ResetPassword(ctx, in.Token, in.NewPassword)
	if err != nil {
		return "", apperrors.MapUpstreamError(err)
	}
	if msg == "" {
		msg = "Password has been reset."
	}
	return msg, nil
}

func (s *AuthService) validate(in any) error {
	err := s.validator.Struct(in)
	if err == nil {
		return nil
	}
	var fe validation.FieldErrors
	if errors.As(err, &fe) {
		first := ""
		for field := range fe {
			if first == "" || field < first {
				first = field
			}
		}
		return apperrors.ValidationField(first, "Please correct the highlighted fields.").WithCause(fe)
	}
	return apperrors.Wrap(err, apperrors.ErrCodeInternal, "validate input")
}

// generateSessionID creates a cryptographically secure random session ID.
func generateSessionID() string {
	return uuid.New().String()
}
