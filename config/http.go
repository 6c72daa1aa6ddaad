package config

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// HTTPConfig contains console HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the public URL of the console, used in password reset links.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CookieName names the session cookie.
	CookieName string `env:"APP_COOKIE_NAME" envDefault:"session_id"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request host. Public suffixes are rejected.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// CookieSecure marks the session cookie Secure. Forced on outside dev mode.
	CookieSecure bool `env:"APP_COOKIE_SECURE" envDefault:"true"`

	// ReadHeaderTimeout bounds how long a client may take to send request headers.
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// WaitRetryAfter is the Retry-After hint sent while a session cannot be loaded.
	WaitRetryAfter time.Duration `env:"HTTP_WAIT_RETRY_AFTER" envDefault:"2s"`

	warnings []string
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize(isDev bool) {
	h.warnings = h.warnings[:0]

	if h.CookieName = strings.TrimSpace(h.CookieName); h.CookieName == "" {
		h.CookieName = "session_id"
	}

	h.CookieDomain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(h.CookieDomain)), ".")
	if h.CookieDomain != "" && isPublicSuffix(h.CookieDomain) {
		h.warnings = append(h.warnings,
			fmt.Sprintf("APP_COOKIE_DOMAIN %q is a public suffix; falling back to host-only cookies", h.CookieDomain))
		h.CookieDomain = ""
	}

	if !isDev && !h.CookieSecure {
		h.warnings = append(h.warnings, "APP_COOKIE_SECURE=false ignored outside dev mode")
		h.CookieSecure = true
	}

	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = 10 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 15 * time.Second
	}
	if h.WaitRetryAfter < time.Second {
		h.WaitRetryAfter = time.Second
	}
}

// isPublicSuffix reports whether domain is itself a public suffix such as "com" or "github.io".
func isPublicSuffix(domain string) bool {
	suffix, _ := publicsuffix.PublicSuffix(domain)
	return suffix == domain
}
