package httpx

import (
	"net/http"
	"time"

	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
)

// DefaultCookieName is used when CookieConfig.Name is empty.
const DefaultCookieName = "session_id"

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Domain string
	// Secure forces the Secure attribute. TLS and X-Forwarded-Proto: https also set it.
	Secure bool
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

func (c CookieConfig) secure(r *http.Request) bool {
	return c.Secure || r.TLS != nil || isForwardedHTTPS(r)
}

// sessionID returns the session id carried by the request, or "".
func (c CookieConfig) sessionID(r *http.Request) string {
	ck, err := r.Cookie(c.name())
	if err != nil {
		return ""
	}
	return ck.Value
}

// set writes the session cookie to expire with the session.
func (c CookieConfig) set(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    s.ID,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clear expires the session cookie, mirroring the attributes used by set.
func (c CookieConfig) clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.secure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}
