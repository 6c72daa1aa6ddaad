package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// maxJSONBody bounds JSON request bodies accepted by console handlers.
const maxJSONBody = 1 << 20

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, ErrorParams{
				Code:    http.StatusRequestEntityTooLarge,
				ErrCode: "body_too_large",
				Err:     fmt.Errorf("request body exceeds %d bytes", maxErr.Limit),
			})
			return false
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		return
	}
}

// ErrorParams groups the fields of a JSON error response.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
	// RedirectTo tells API callers where a browser would have been sent.
	RedirectTo string
	// Fields carries per-field validation messages.
	Fields map[string]string
}

type errorBody struct {
	Error      string            `json:"error"`
	Message    string            `json:"message,omitempty"`
	RedirectTo string            `json:"redirect_to,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	body := errorBody{Error: p.ErrCode, RedirectTo: p.RedirectTo, Fields: p.Fields}
	if p.Err != nil {
		body.Message = p.Err.Error()
	}
	WriteJSON(w, p.Code, body)
}
