package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/Vignesh6104/sims-console/internal/apiclient"
	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
	apperrors "github.com/Vignesh6104/sims-console/internal/errors"
	"github.com/Vignesh6104/sims-console/internal/requestid"
	"github.com/Vignesh6104/sims-console/internal/validation"
)

// statusClientClosedRequest is logged when the caller went away mid-request.
const statusClientClosedRequest = 499

// errorResponder turns backend and service errors into console responses.
type errorResponder struct {
	Renderer *TemplateRenderer
	Cookies  CookieConfig
	Logger   *slog.Logger
}

func (e errorResponder) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// writeUpstreamError answers a failed backend call. A session that ended during the
// request signs the caller out; backend rejections pass through with their status and body.
func (e errorResponder) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	if apiclient.IsSessionExpired(err) || sessionExpired(r.Context()) {
		e.writeSessionExpired(w, r)
		return
	}

	var herr *apiclient.HTTPError
	if errors.As(err, &herr) {
		if wantsJSON(r) {
			ct := herr.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/json"
			}
			w.Header().Set("Content-Type", ct)
			w.WriteHeader(herr.Status)
			_, _ = w.Write(herr.Body)
			return
		}
		e.writeAppError(w, r, apperrors.MapUpstreamError(err))
		return
	}

	status := http.StatusBadGateway
	msg := "Could not reach the SIMS backend."
	code := "upstream_unavailable"
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		status, code, msg = statusClientClosedRequest, "canceled", "Request was canceled."
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		status, code, msg = http.StatusGatewayTimeout, "upstream_timeout", "The SIMS backend did not respond in time."
	}

	e.logger().WarnContext(r.Context(), "backend call failed",
		slog.Any("error", err),
		slog.Int("status", status),
		slog.String("request_id", requestid.FromContext(r.Context())))

	if status == statusClientClosedRequest {
		w.WriteHeader(status)
		return
	}
	if wantsJSON(r) {
		WriteError(w, ErrorParams{Code: status, ErrCode: code, Err: errors.New(msg)})
		return
	}
	e.Renderer.page(w, r, status, "error", PageData{
		Title: http.StatusText(status),
		Error: msg,
	})
}

func (e errorResponder) writeSessionExpired(w http.ResponseWriter, r *http.Request) {
	e.Cookies.clear(w, r)
	if wantsJSON(r) {
		WriteError(w, ErrorParams{
			Code:       http.StatusUnauthorized,
			ErrCode:    string(apperrors.ErrCodeSessionExpired),
			Err:        errors.New("your session has expired, please sign in again"),
			RedirectTo: domainauth.LoginRoute,
		})
		return
	}
	navigate(w, r, loginURL(r))
}

// statusForCode maps AppError codes to HTTP statuses.
func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeUnauthorized, apperrors.ErrCodeSessionExpired:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeUpstream:
		return http.StatusBadGateway
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeCanceled:
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError answers a service-layer error as JSON or as the error page.
func (e errorResponder) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.IsSessionExpired(err) {
		e.writeSessionExpired(w, r)
		return
	}

	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	status := statusForCode(code)

	msg := "Something went wrong."
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && code != apperrors.ErrCodeInternal {
		msg = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		e.logger().ErrorContext(r.Context(), "request failed",
			slog.Any("error", err),
			slog.String("request_id", requestid.FromContext(r.Context())))
	}

	var fields validation.FieldErrors
	_ = errors.As(err, &fields)

	if wantsJSON(r) {
		WriteError(w, ErrorParams{Code: status, ErrCode: string(code), Err: errors.New(msg), Fields: fields})
		return
	}
	e.Renderer.page(w, r, status, "error", PageData{
		Title: http.StatusText(status),
		Error: msg,
	})
}
