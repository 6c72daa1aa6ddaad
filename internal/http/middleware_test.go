package httpx

import (
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
	"github.com/Vignesh6104/sims-console/internal/requestid"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
	}))

	t.Run("keeps caller id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(requestid.Header, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get(requestid.Header))
	})

	t.Run("mints id for garbage", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(requestid.Header, "has space")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		assert.Len(t, seen, 26)
		assert.Equal(t, seen, rec.Header().Get(requestid.Header))
	})
}

func TestRecover(t *testing.T) {
	h := Recover(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogging_RecordsStatus(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/x"`)
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewRateLimiter(60, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "buckets are per key")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"), "one token refills per second at 60/min")

	now = now.Add(defaultLimiterTTL + sweepInterval)
	l.Allow("c")
	l.mu.Lock()
	_, hasA := l.visitors["a"]
	l.mu.Unlock()
	assert.False(t, hasA, "idle visitors are swept")
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.4:1234"
	assert.Equal(t, "198.51.100.4", clientIP(r))

	r.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "not-a-hostport"
	assert.Equal(t, "not-a-hostport", clientIP(r))
}

func TestCookieConfig(t *testing.T) {
	sess := domainauth.Session{ID: "sid", ExpiresAt: time.Now().Add(time.Hour)}

	t.Run("plain http in dev is not secure", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CookieConfig{}.set(rec, httptest.NewRequest(http.MethodGet, "/", nil), sess)
		c := findCookie(rec, DefaultCookieName)
		require.NotNil(t, c)
		assert.False(t, c.Secure)
		assert.Equal(t, "sid", c.Value)
		assert.InDelta(t, 3600, c.MaxAge, 5)
	})

	t.Run("tls or forwarded https is secure", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.TLS = &tls.ConnectionState{}
		rec := httptest.NewRecorder()
		CookieConfig{Name: "sims"}.set(rec, r, sess)
		assert.True(t, findCookie(rec, "sims").Secure)

		r = httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Forwarded-Proto", "http, https")
		rec = httptest.NewRecorder()
		CookieConfig{}.clear(rec, r)
		c := findCookie(rec, DefaultCookieName)
		assert.True(t, c.Secure)
		assert.Negative(t, c.MaxAge)
	})

	t.Run("expired session still gets a positive max age", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CookieConfig{Secure: true}.set(rec, httptest.NewRequest(http.MethodGet, "/", nil),
			domainauth.Session{ID: "x", ExpiresAt: time.Now().Add(-time.Hour)})
		c := findCookie(rec, DefaultCookieName)
		assert.Equal(t, 1, c.MaxAge)
		assert.True(t, c.Secure)
	})
}

func TestSafeRedirectPath(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"/teacher":             "/teacher",
		"/api/x?y=1":           "/api/x?y=1",
		"https://evil.example": "",
		"//evil.example":       "",
		"relative":             "",
		"javascript:alert(1)":  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeRedirectPath(in), "input %q", in)
	}
}

func TestLoginURL(t *testing.T) {
	assert.Equal(t, "/login", loginURL(httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, "/login", loginURL(httptest.NewRequest(http.MethodGet, "/login?x=1", nil)))
	assert.Equal(t, "/login?redirect_uri=%2Fadmin%3Ftab%3D2", loginURL(httptest.NewRequest(http.MethodGet, "/admin?tab=2", nil)))

	r := httptest.NewRequest(http.MethodGet, "/api/students/", nil)
	r.Header.Set("Hx-Request", "true")
	r.Header.Set("Hx-Current-Url", "http://console.local/teacher")
	assert.Equal(t, "/login?redirect_uri=%2Fteacher", loginURL(r))
}

func TestKindOf(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/students/", nil)
	assert.Equal(t, kindAPI, kindOf(r))

	r = httptest.NewRequest(http.MethodGet, "/teacher", nil)
	assert.Equal(t, kindBrowser, kindOf(r))

	r.Header.Set("Accept", "text/html,application/json")
	assert.Equal(t, kindBrowser, kindOf(r))

	r.Header.Set("Accept", "application/json")
	assert.Equal(t, kindAPI, kindOf(r))

	r = httptest.NewRequest(http.MethodGet, "/teacher", nil)
	r.Header.Set("Hx-Request", "true")
	assert.Equal(t, kindHTMX, kindOf(r))
}

func TestCSRFProtection(t *testing.T) {
	h := CSRFProtection(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, GetCSRFToken(r))
	}))

	t.Run("issues token on first visit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

		c := findCookie(rec, DefaultCSRFCookieName)
		require.NotNil(t, c)
		assert.Equal(t, c.Value, rec.Body.String())
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	})

	t.Run("form field accepted", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/logout", strings.NewReader("csrf_token="+testCSRF))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: testCSRF})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("mismatch rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/logout", nil)
		r.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: testCSRF})
		r.Header.Set(DefaultCSRFHeaderName, "other")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("json and non-post methods exempt", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/students/", strings.NewReader(`{}`))
		r.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/students/1/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestTemplateRenderer(t *testing.T) {
	fsys := fstest.MapFS{
		"ok.tmpl":             {Data: []byte(`{{define "ok"}}hi {{.Title}}{{template "p" .}}{{end}}`)},
		"broken.tmpl":         {Data: []byte(`{{define "broken"}}{{.Missing.Field}}{{end}}`)},
		"partials/p.tmpl":     {Data: []byte(`{{define "p"}}!{{end}}`)},
		"partials/extra.tmpl": {Data: []byte(`{{define "extra"}}{{end}}`)},
	}
	r, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: fsys, Logger: discardLogger()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, r.Render(rec, http.StatusAccepted, "ok", PageData{Title: "there"}))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "hi there!", rec.Body.String())

	rec = httptest.NewRecorder()
	require.Error(t, r.Render(rec, http.StatusOK, "broken", PageData{}))
	assert.Empty(t, rec.Body.String(), "nothing is written on failure")

	_, err = NewTemplateRenderer(TemplateRendererConfig{})
	assert.Error(t, err)
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	big := `{"username":"` + strings.Repeat("a", maxJSONBody) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(big))
	rec := httptest.NewRecorder()

	var dst loginRequest
	assert.False(t, DecodeJSON(rec, r, &dst))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusForCode("validation"))
	assert.Equal(t, http.StatusGatewayTimeout, statusForCode("timeout"))
	assert.Equal(t, http.StatusInternalServerError, statusForCode("something-else"))
}
