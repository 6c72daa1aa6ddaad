package httpx

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
	apperrors "github.com/Vignesh6104/sims-console/internal/errors"
	"github.com/Vignesh6104/sims-console/internal/service"
	"github.com/Vignesh6104/sims-console/internal/session"
	"github.com/Vignesh6104/sims-console/internal/validation"
)

// AuthServiceInterface is the subset of service.AuthService the handlers use.
type AuthServiceInterface interface {
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	ResetPassword(ctx context.Context, in service.ResetPasswordInput) (string, error)
	OpenSession(sessionID string) *session.State
}

// AuthHandlers serves sign-in, sign-out, session status, and password reset.
type AuthHandlers struct {
	Svc      AuthServiceInterface
	Renderer *TemplateRenderer
	Cookies  CookieConfig
	Logger   *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h *AuthHandlers) responder() errorResponder {
	return errorResponder{Renderer: h.Renderer, Cookies: h.Cookies, Logger: h.Logger}
}

func isJSONBody(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// LoginPage renders the sign-in form. Signed-in callers go straight to their landing route.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	snap := SnapshotFromContext(r.Context())
	if snap.Token != "" && snap.Role.Valid() {
		navigate(w, r, domainauth.LandingRoute(snap.Role))
		return
	}
	h.Renderer.page(w, r, http.StatusOK, "login", PageData{
		Title:       "Sign in",
		RedirectURI: safeRedirectPath(r.URL.Query().Get("redirect_uri")),
	})
}

type loginRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	RedirectURI string `json:"redirect_uri"`
}

func (h *AuthHandlers) readLogin(w http.ResponseWriter, r *http.Request) (loginRequest, bool) {
	var req loginRequest
	if isJSONBody(r) {
		return req, DecodeJSON(w, r, &req)
	}
	if err := r.ParseForm(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
		return req, false
	}
	req.Username = r.PostForm.Get("username")
	req.Password = r.PostForm.Get("password")
	req.RedirectURI = r.PostForm.Get("redirect_uri")
	return req, true
}

// Login exchanges credentials for a console session and sends the caller onward.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readLogin(w, r)
	if !ok {
		return
	}
	redirect := safeRedirectPath(req.RedirectURI)

	res, err := h.Svc.Login(r.Context(), service.LoginInput{Username: req.Username, Password: req.Password})
	if err != nil {
		h.loginFailed(w, r, req, redirect, err)
		return
	}

	if old := h.Cookies.sessionID(r); old != "" && old != res.Session.ID {
		if logoutErr := h.Svc.Logout(r.Context(), old); logoutErr != nil {
			h.logger().WarnContext(r.Context(), "failed to drop previous session", slog.Any("error", logoutErr))
		}
	}
	h.Cookies.set(w, r, res.Session)

	target := redirect
	if target == "" {
		target = domainauth.LandingRoute(res.Session.Role)
	}

	if wantsJSON(r) || isJSONBody(r) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "ok",
			"redirect_to": target,
			"role":        string(res.Session.Role),
		})
		return
	}
	navigate(w, r, target)
}

func (h *AuthHandlers) loginFailed(w http.ResponseWriter, r *http.Request, req loginRequest, redirect string, err error) {
	code := apperrors.GetCode(err)
	status := statusForCode(code)
	switch code {
	case apperrors.ErrCodeValidation, apperrors.ErrCodeUnauthorized, apperrors.ErrCodeForbidden:
	default:
		h.responder().writeAppError(w, r, err)
		return
	}

	var appErr *apperrors.AppError
	msg := "Sign-in failed."
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	var fields validation.FieldErrors
	_ = errors.As(err, &fields)

	if wantsJSON(r) || isJSONBody(r) {
		WriteError(w, ErrorParams{Code: status, ErrCode: string(code), Err: errors.New(msg), Fields: fields})
		return
	}
	h.Renderer.page(w, r, status, "login", PageData{
		Title:       "Sign in",
		Error:       msg,
		Form:        map[string]string{"username": req.Username},
		Fields:      fields,
		RedirectURI: redirect,
	})
}

// Logout deletes the session and clears the cookie.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if id := h.Cookies.sessionID(r); id != "" {
		if err := h.Svc.Logout(r.Context(), id); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", slog.Any("error", err))
		}
	}
	h.Cookies.clear(w, r)

	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out", "redirect_to": domainauth.LoginRoute})
		return
	}
	navigate(w, r, domainauth.LoginRoute)
}

type statusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Loading       bool   `json:"loading"`
	Role          string `json:"role,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	LandingRoute  string `json:"landing_route"`
}

// Status reports the caller's session snapshot without exposing tokens.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	snap := SnapshotFromContext(r.Context())
	resp := statusResponse{
		Authenticated: snap.Token != "",
		Loading:       snap.Loading,
		LandingRoute:  domainauth.LoginRoute,
	}
	if resp.Authenticated {
		resp.Role = string(snap.Role)
		resp.UserID = snap.UserID
		resp.LandingRoute = domainauth.LandingRoute(snap.Role)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// ResetPasswordPage renders the reset form, prefilled with ?token= when present.
func (h *AuthHandlers) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.Renderer.page(w, r, http.StatusOK, "reset-password", PageData{
		Title: "Reset password",
		Form:  map[string]string{"token": r.URL.Query().Get("token")},
	})
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ResetPassword submits a password reset to the backend.
func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if isJSONBody(r) {
		if !DecodeJSON(w, r, &req) {
			return
		}
		if req.ConfirmPassword == "" {
			req.ConfirmPassword = req.NewPassword
		}
	} else {
		if err := r.ParseForm(); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
			return
		}
		req = resetPasswordRequest{
			Token:           r.PostForm.Get("token"),
			NewPassword:     r.PostForm.Get("new_password"),
			ConfirmPassword: r.PostForm.Get("confirm_password"),
		}
	}
	jsonReply := wantsJSON(r) || isJSONBody(r)

	msg, err := h.Svc.ResetPassword(r.Context(), service.ResetPasswordInput{
		Token:           req.Token,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		if !apperrors.IsValidation(err) {
			h.responder().writeAppError(w, r, err)
			return
		}
		var appErr *apperrors.AppError
		_ = errors.As(err, &appErr)
		var fields validation.FieldErrors
		_ = errors.As(err, &fields)

		if jsonReply {
			WriteError(w, ErrorParams{
				Code:    http.StatusUnprocessableEntity,
				ErrCode: string(apperrors.ErrCodeValidation),
				Err:     errors.New(appErr.Message),
				Fields:  fields,
			})
			return
		}
		h.Renderer.page(w, r, http.StatusUnprocessableEntity, "reset-password", PageData{
			Title:  "Reset password",
			Error:  appErr.Message,
			Form:   map[string]string{"token": req.Token},
			Fields: fields,
		})
		return
	}

	if jsonReply {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": msg})
		return
	}
	h.Renderer.page(w, r, http.StatusOK, "reset-password", PageData{
		Title:  "Reset password",
		Notice: msg,
		Done:   true,
	})
}
