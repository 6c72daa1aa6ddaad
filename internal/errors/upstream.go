package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/Vignesh6104/sims-console/internal/apiclient"
)

// detailExpr pulls a human-readable message out of a backend error body.
// The backend reports validation failures as a list of {msg} objects and everything else as a string.
const detailExpr = "detail[0].msg || detail || message || msg"

// MapUpstreamError maps errors returned by the backend client to AppError instances:
// - refresh failure → SessionExpired
// - context timeouts/cancellations → Timeout/Canceled
// - 400/422 → Validation, 401 → Unauthorized, 403 → Forbidden, 404 → NotFound
// - 5xx and transport failures → Upstream
//
// AppErrors pass through unchanged.
func MapUpstreamError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	if apiclient.IsSessionExpired(err) {
		return Wrap(err, ErrCodeSessionExpired, "Your session has expired. Please sign in again.")
	}

	if errors.Is(err, context.Canceled) {
		return Wrap(err, ErrCodeCanceled, "Request was canceled.")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrCodeTimeout, "The SIMS backend did not respond in time.")
	}

	var herr *apiclient.HTTPError
	if errors.As(err, &herr) {
		return mapHTTPError(herr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Wrap(err, ErrCodeTimeout, "The SIMS backend did not respond in time.")
	}

	return Wrap(err, ErrCodeUpstream, "Could not reach the SIMS backend.")
}

func mapHTTPError(herr *apiclient.HTTPError) error {
	detail := DetailMessage(herr.Body)

	switch {
	case herr.Status == http.StatusBadRequest || herr.Status == http.StatusUnprocessableEntity:
		return Wrap(herr, ErrCodeValidation, fallback(detail, "The request was rejected as invalid."))
	case herr.Status == http.StatusUnauthorized:
		return Wrap(herr, ErrCodeUnauthorized, fallback(detail, "Authentication required."))
	case herr.Status == http.StatusForbidden:
		return Wrap(herr, ErrCodeForbidden, fallback(detail, "You do not have access to this resource."))
	case herr.Status == http.StatusNotFound:
		return Wrap(herr, ErrCodeNotFound, fallback(detail, "Resource not found"))
	case herr.Status >= http.StatusInternalServerError:
		return Wrap(herr, ErrCodeUpstream, "The SIMS backend failed to process the request.")
	default:
		return Wrap(herr, ErrCodeUpstream, fallback(detail, "Unexpected response from the SIMS backend."))
	}
}

// DetailMessage extracts the backend's error message from a JSON body, or "".
func DetailMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return ""
	}
	v, err := jmespath.Search(detailExpr, data)
	if err != nil {
		return ""
	}
	msg, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(msg)
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
