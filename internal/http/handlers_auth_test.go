package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vignesh6104/sims-console/internal/observability/metrics"
	"github.com/Vignesh6104/sims-console/internal/ports"
)

func formRequest(method, target string, form url.Values) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestLoginPage(t *testing.T) {
	h := newHarness(t)

	t.Run("renders form with csrf token", func(t *testing.T) {
		rec := h.serve(httptest.NewRequest(http.MethodGet, "/login?redirect_uri=/teacher", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `name="username"`)
		assert.Contains(t, body, `value="/teacher"`)

		csrf := findCookie(rec, DefaultCSRFCookieName)
		require.NotNil(t, csrf)
		assert.Contains(t, body, csrf.Value)
	})

	t.Run("drops external redirect", func(t *testing.T) {
		rec := h.serve(httptest.NewRequest(http.MethodGet, "/login?redirect_uri=https://evil.example/", nil))
		assert.NotContains(t, rec.Body.String(), "evil.example")
	})

	t.Run("signed in goes to landing", func(t *testing.T) {
		cookie, _ := h.signIn("student")
		r := httptest.NewRequest(http.MethodGet, "/login", nil)
		r.AddCookie(cookie)
		rec := h.serve(r)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/student", rec.Header().Get("Location"))
	})
}

func TestLogin_Form(t *testing.T) {
	h := newHarness(t)

	t.Run("missing csrf token is rejected", func(t *testing.T) {
		rec := h.serve(formRequest(http.MethodPost, "/login", url.Values{"username": {"teacher"}, "password": {"teacher-pass1"}}))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Nil(t, findCookie(rec, DefaultCookieName))
	})

	t.Run("success sets cookie and redirects to landing", func(t *testing.T) {
		rec := h.serve(withCSRF(formRequest(http.MethodPost, "/login", url.Values{
			"username": {"teacher"}, "password": {"teacher-pass1"},
		})))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/teacher", rec.Header().Get("Location"))

		c := findCookie(rec, DefaultCookieName)
		require.NotNil(t, c)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Positive(t, c.MaxAge)

		sess, err := h.sessions.Get(context.Background(), c.Value)
		require.NoError(t, err)
		assert.Equal(t, "2", sess.UserID)
	})

	t.Run("honors same-origin redirect_uri", func(t *testing.T) {
		rec := h.serve(withCSRF(formRequest(http.MethodPost, "/login", url.Values{
			"username": {"admin"}, "password": {"admin-pass1"}, "redirect_uri": {"/api/assets/?page=2"},
		})))
		assert.Equal(t, "/api/assets/?page=2", rec.Header().Get("Location"))

		rec = h.serve(withCSRF(formRequest(http.MethodPost, "/login", url.Values{
			"username": {"admin"}, "password": {"admin-pass1"}, "redirect_uri": {"//evil.example/x"},
		})))
		assert.Equal(t, "/admin", rec.Header().Get("Location"))
	})

	t.Run("htmx gets Hx-Redirect", func(t *testing.T) {
		r := withCSRF(formRequest(http.MethodPost, "/login", url.Values{"username": {"parent"}, "password": {"parent-pass1"}}))
		r.Header.Set("Hx-Request", "true")
		rec := h.serve(r)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/parent", rec.Header().Get("Hx-Redirect"))
	})

	t.Run("wrong password re-renders with message", func(t *testing.T) {
		rec := h.serve(withCSRF(formRequest(http.MethodPost, "/login", url.Values{
			"username": {"teacher"}, "password": {"nope"},
		})))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid username or password.")
		assert.Contains(t, rec.Body.String(), `value="teacher"`)
		assert.Nil(t, findCookie(rec, DefaultCookieName))
	})

	t.Run("blank fields show field errors", func(t *testing.T) {
		rec := h.serve(withCSRF(formRequest(http.MethodPost, "/login", url.Values{})))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "field-error")
	})

	t.Run("replaces previous session", func(t *testing.T) {
		old, oldSess := h.signIn("student")
		r := withCSRF(formRequest(http.MethodPost, "/login", url.Values{"username": {"student"}, "password": {"student-pass1"}}))
		r.AddCookie(old)
		rec := h.serve(r)
		require.Equal(t, http.StatusSeeOther, rec.Code)

		_, err := h.sessions.Get(context.Background(), oldSess.ID)
		assert.ErrorIs(t, err, ports.ErrSessionNotFound)
	})
}

func TestLogin_JSON(t *testing.T) {
	h := newHarness(t)

	rec := h.serve(apiRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"admin","password":"admin-pass1"}`), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "admin", body["role"])
	assert.Equal(t, "/admin", body["redirect_to"])
	assert.NotNil(t, findCookie(rec, DefaultCookieName))

	rec = h.serve(apiRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"","password":""}`), nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "validation", body["error"])
	assert.Contains(t, body["fields"], "username")

	rec = h.serve(apiRequest(http.MethodPost, "/login", strings.NewReader(`{"user":"x"}`), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_RateLimited(t *testing.T) {
	h := newHarness(t, withLoginLimiter(NewRateLimiter(1, 1)))
	attempt := func() *httptest.ResponseRecorder {
		r := withCSRF(formRequest(http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"wrong"}}))
		r.RemoteAddr = "203.0.113.9:5555"
		return h.serve(r)
	}

	assert.Equal(t, http.StatusUnauthorized, attempt().Code)
	rec := attempt()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, int64(1), h.sink.count(metrics.MetricRateLimited))
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	cookie, sess := h.signIn("teacher")

	r := withCSRF(formRequest(http.MethodPost, "/logout", url.Values{}))
	r.AddCookie(cookie)
	rec := h.serve(r)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	c := findCookie(rec, DefaultCookieName)
	require.NotNil(t, c)
	assert.Negative(t, c.MaxAge)

	_, err := h.sessions.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestAuthStatus(t *testing.T) {
	h := newHarness(t)

	rec := h.serve(apiRequest(http.MethodGet, "/auth/status", nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":false,"loading":false,"landing_route":"/login"}`, rec.Body.String())

	cookie, _ := h.signIn("parent")
	rec = h.serve(apiRequest(http.MethodGet, "/auth/status", nil, cookie))
	assert.JSONEq(t, `{"authenticated":true,"loading":false,"role":"parent","user_id":"3","landing_route":"/parent"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "access-")
}

func TestResetPassword(t *testing.T) {
	h := newHarness(t)

	t.Run("page prefills token", func(t *testing.T) {
		rec := h.serve(httptest.NewRequest(http.MethodGet, "/reset-password?token=abc123", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `value="abc123"`)
	})

	t.Run("form success", func(t *testing.T) {
		rec := h.serve(withCSRF(formRequest(http.MethodPost, "/reset-password", url.Values{
			"token": {"reset-ok"}, "new_password": {"s3cretpass"}, "confirm_password": {"s3cretpass"},
		})))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Password updated successfully")
		assert.NotContains(t, rec.Body.String(), `name="new_password"`)
	})

	t.Run("form rejected token", func(t *testing.T) {
		rec := h.serve(withCSRF(formRequest(http.MethodPost, "/reset-password", url.Values{
			"token": {"stale"}, "new_password": {"s3cretpass"}, "confirm_password": {"s3cretpass"},
		})))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid or expired token")
	})

	t.Run("json mismatch", func(t *testing.T) {
		rec := h.serve(apiRequest(http.MethodPost, "/reset-password",
			strings.NewReader(`{"token":"reset-ok","new_password":"s3cretpass","confirm_password":"other1234"}`), nil))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["fields"], "confirm_password")
	})
}
