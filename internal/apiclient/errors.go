package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoAccessToken is returned when a refresh response carries no usable access token.
var ErrNoAccessToken = errors.New("refresh response has no access token")

// maxErrorDetail bounds how much of a response body is echoed into error strings.
const maxErrorDetail = 256

// HTTPError is a non-2xx/3xx response from the backend.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Header http.Header
	Body   []byte
}

func (e *HTTPError) Error() string {
	detail := strings.TrimSpace(string(e.Body))
	if len(detail) > maxErrorDetail {
		detail = detail[:maxErrorDetail] + "..."
	}
	if detail == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, detail)
}

// Unauthorized reports whether the backend rejected the credentials.
func (e *HTTPError) Unauthorized() bool { return e.Status == http.StatusUnauthorized }

// ErrorClass labels the error by status class for metrics.
func (e *HTTPError) ErrorClass() string { return fmt.Sprintf("http_%dxx", e.Status/100) }

// RefreshError reports that a 401 could not be recovered because the refresh call failed.
// By the time it is returned the session has been cleared and the expiry handler has run.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return "session expired: token refresh failed: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error { return e.Err }

func (e *RefreshError) ErrorClass() string { return "refresh_failed" }

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var herr *HTTPError
	return errors.As(err, &herr) && herr.Unauthorized()
}

// IsSessionExpired reports whether err ended the session.
func IsSessionExpired(err error) bool {
	var rerr *RefreshError
	return errors.As(err, &rerr)
}
