package httpx

import (
	"net/http"
	"net/url"
	"strings"
)

// requestKind classifies a caller by the response style it expects.
type requestKind int

const (
	kindBrowser requestKind = iota
	kindHTMX
	kindAPI
)

// kindOf decides how to answer r: /api paths and JSON-only callers get JSON,
// htmx gets header-driven navigation, everything else gets pages and redirects.
func kindOf(r *http.Request) requestKind {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return kindAPI
	}
	if IsHTMX(r) {
		return kindHTMX
	}
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html") {
		return kindAPI
	}
	return kindBrowser
}

// wantsJSON reports whether r should get JSON bodies.
func wantsJSON(r *http.Request) bool { return kindOf(r) == kindAPI }

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return ""
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return ""
	}
	return candidate
}

// loginURL builds the sign-in URL that returns the caller to r's location afterwards.
func loginURL(r *http.Request) string {
	back := r.URL.RequestURI()
	if IsHTMX(r) {
		if cur, err := url.Parse(r.Header.Get("Hx-Current-Url")); err == nil && cur.Path != "" {
			back = cur.RequestURI()
		}
	}
	back = safeRedirectPath(back)
	if back == "" || back == "/" || strings.HasPrefix(back, "/login") {
		return "/login"
	}
	return "/login?" + url.Values{"redirect_uri": {back}}.Encode()
}
