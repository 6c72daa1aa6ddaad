package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Vignesh6104/sims-console/internal/apiclient"
	"github.com/Vignesh6104/sims-console/internal/service"
)

// APIHandlers passes guarded /api calls through to the backend with the caller's session.
type APIHandlers struct {
	Dashboard *service.DashboardService
	Renderer  *TemplateRenderer
	Cookies   CookieConfig
	Logger    *slog.Logger
}

func (h *APIHandlers) responder() errorResponder {
	return errorResponder{Renderer: h.Renderer, Cookies: h.Cookies, Logger: h.Logger}
}

func (h *APIHandlers) client(w http.ResponseWriter, r *http.Request) *apiclient.Client {
	c := ClientFromContext(r.Context())
	if c == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     errors.New("backend client unavailable"),
		})
	}
	return c
}

// Proxy forwards the request to the backend path under /api and copies the answer back.
func (h *APIHandlers) Proxy(w http.ResponseWriter, r *http.Request) {
	c := h.client(w, r)
	if c == nil {
		return
	}

	req := apiclient.Request{
		Method: r.Method,
		Path:   strings.TrimPrefix(r.URL.Path, "/api"),
		Query:  r.URL.Query(),
	}

	if r.Body != nil && r.Method != http.MethodGet && r.Method != http.MethodHead {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
		if err != nil {
			WriteError(w, ErrorParams{Code: http.StatusRequestEntityTooLarge, ErrCode: "body_too_large", Err: err})
			return
		}
		if len(body) > 0 {
			if !isJSONBody(r) {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnsupportedMediaType,
					ErrCode: "unsupported_media_type",
					Err:     errors.New("request body must be application/json"),
				})
				return
			}
			if !json.Valid(body) {
				WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: errors.New("request body is not valid JSON")})
				return
			}
			req.Body = json.RawMessage(body)
		}
	}

	resp, err := c.Do(r.Context(), req)
	if err != nil {
		h.responder().writeUpstreamError(w, r, err)
		return
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(resp.Status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(resp.Body)
	}
}

// ParentDashboard aggregates the parent's children with their marks, assignments, and attendance.
func (h *APIHandlers) ParentDashboard(w http.ResponseWriter, r *http.Request) {
	c := h.client(w, r)
	if c == nil {
		return
	}
	dash, err := h.Dashboard.Parent(r.Context(), c)
	if err != nil {
		// Undecodable listings land here too and are reported as a bad gateway.
		h.responder().writeUpstreamError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, dash)
}
