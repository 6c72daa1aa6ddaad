package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/oauth2"

	"github.com/Vignesh6104/sims-console/internal/adapters/memstore"
	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
	apperrors "github.com/Vignesh6104/sims-console/internal/errors"
	"github.com/Vignesh6104/sims-console/internal/mocks"
	mockauth "github.com/Vignesh6104/sims-console/internal/mocks/auth"
	"github.com/Vignesh6104/sims-console/internal/ports"
	"github.com/Vignesh6104/sims-console/internal/validation"
)

func newTestAuthService(backend ports.AuthBackend, sessions ports.SessionStore, claims ports.ClaimsReader) *AuthService {
	return NewAuthService(AuthServiceOptions{
		Backend:    backend,
		Sessions:   sessions,
		Claims:     claims,
		SessionTTL: time.Hour,
	})
}

func TestNewAuthService_Defaults(t *testing.T) {
	svc := NewAuthService(AuthServiceOptions{})
	assert.Equal(t, DefaultSessionTTL, svc.ttl)
	assert.NotNil(t, svc.validator)
	assert.NotNil(t, svc.logger)
}

func TestAuthService_Login_Success(t *testing.T) {
	backend := mockauth.NewMockAuthBackend()
	sessions := memstore.NewSessionStore()
	svc := newTestAuthService(backend, sessions, nil)

	res, err := svc.Login(context.Background(), LoginInput{Username: "  teacher ", Password: "teacher-pass1"})
	require.NoError(t, err)

	sess := res.Session
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "access-teacher-1", sess.AccessToken)
	assert.Equal(t, "refresh-teacher-1", sess.RefreshToken)
	assert.Equal(t, domainauth.RoleTeacher, sess.Role)
	assert.Equal(t, "2", sess.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)

	stored, err := sessions.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.AccessToken, stored.AccessToken)
}

func TestAuthService_Login_UniqueSessionIDs(t *testing.T) {
	svc := newTestAuthService(mockauth.NewMockAuthBackend(), memstore.NewSessionStore(), nil)

	a, err := svc.Login(context.Background(), LoginInput{Username: "admin", Password: "admin-pass1"})
	require.NoError(t, err)
	b, err := svc.Login(context.Background(), LoginInput{Username: "admin", Password: "admin-pass1"})
	require.NoError(t, err)
	assert.NotEqual(t, a.Session.ID, b.Session.ID)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	sessions := memstore.NewSessionStore()
	svc := newTestAuthService(mockauth.NewMockAuthBackend(), sessions, nil)

	_, err := svc.Login(context.Background(), LoginInput{Username: "teacher", Password: "nope"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Zero(t, sessions.Len())
}

func TestAuthService_Login_Validation(t *testing.T) {
	backend := mockauth.NewMockAuthBackend()
	svc := newTestAuthService(backend, memstore.NewSessionStore(), nil)

	_, err := svc.Login(context.Background(), LoginInput{Username: "   ", Password: ""})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "password", apperrors.GetField(err))

	var fe validation.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe, "username")
	assert.Contains(t, fe, "password")
	assert.Zero(t, backend.Calls(), "backend must not be called for invalid input")
}

func TestAuthService_Login_RoleFromClaims(t *testing.T) {
	ctrl := gomock.NewController(t)
	claims := mocks.NewMockClaimsReader(ctrl)
	claims.EXPECT().Read("jwt-token").Return(ports.Claims{Subject: "42", Role: domainauth.RoleParent}, nil)

	backend := &mockauth.MockAuthBackend{
		LoginFunc: func(context.Context, string, string) (*oauth2.Token, error) {
			return &oauth2.Token{AccessToken: "jwt-token", RefreshToken: "r"}, nil
		},
	}
	svc := newTestAuthService(backend, memstore.NewSessionStore(), claims)

	res, err := svc.Login(context.Background(), LoginInput{Username: "p", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleParent, res.Session.Role)
	assert.Equal(t, "42", res.Session.UserID)
}

func TestAuthService_Login_NoRole(t *testing.T) {
	backend := &mockauth.MockAuthBackend{
		LoginFunc: func(context.Context, string, string) (*oauth2.Token, error) {
			return (&oauth2.Token{AccessToken: "opaque"}).WithExtra(map[string]any{"role": "janitor"}), nil
		},
	}
	claims := mockauth.StaticClaimsReader{Err: errors.New("not a jwt")}
	svc := newTestAuthService(backend, memstore.NewSessionStore(), claims)

	_, err := svc.Login(context.Background(), LoginInput{Username: "j", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetCode(err))
}

func TestAuthService_Login_SaveError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	svc := newTestAuthService(mockauth.NewMockAuthBackend(), store, nil)

	_, err := svc.Login(context.Background(), LoginInput{Username: "admin", Password: "admin-pass1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save session")
}

func TestAuthService_Logout(t *testing.T) {
	sessions := memstore.NewSessionStore()
	svc := newTestAuthService(mockauth.NewMockAuthBackend(), sessions, nil)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginInput{Username: "admin", Password: "admin-pass1"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.Session.ID))
	_, err = sessions.Get(ctx, res.Session.ID)
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	assert.NoError(t, svc.Logout(ctx, ""))
}

func TestAuthService_OpenSession(t *testing.T) {
	sessions := memstore.NewSessionStore()
	svc := newTestAuthService(mockauth.NewMockAuthBackend(), sessions, nil)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginInput{Username: "parent", Password: "parent-pass1"})
	require.NoError(t, err)

	state := svc.OpenSession(res.Session.ID)
	assert.True(t, state.Snapshot().Loading)
	require.NoError(t, state.Hydrate(ctx))
	assert.Equal(t, domainauth.RoleParent, state.Snapshot().Role)
}

func TestAuthService_ResetPassword(t *testing.T) {
	svc := newTestAuthService(mockauth.NewMockAuthBackend(), memstore.NewSessionStore(), nil)
	ctx := context.Background()

	msg, err := svc.ResetPassword(ctx, ResetPasswordInput{
		Token: "reset-ok", NewPassword: "s3cretpass", ConfirmPassword: "s3cretpass",
	})
	require.NoError(t, err)
	assert.Equal(t, "Password updated successfully", msg)

	_, err = svc.ResetPassword(ctx, ResetPasswordInput{
		Token: "reset-ok", NewPassword: "short1", ConfirmPassword: "short1",
	})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "new_password", apperrors.GetField(err))

	_, err = svc.ResetPassword(ctx, ResetPasswordInput{
		Token: "reset-ok", NewPassword: "s3cretpass", ConfirmPassword: "different1",
	})
	assert.Equal(t, "confirm_password", apperrors.GetField(err))

	_, err = svc.ResetPassword(ctx, ResetPasswordInput{
		Token: "expired", NewPassword: "s3cretpass", ConfirmPassword: "s3cretpass",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Invalid or expired token", appErr.Message)
}
