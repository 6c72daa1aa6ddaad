package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHTMX(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, IsHTMX(r))

	r.Header.Set("Hx-Request", "TRUE")
	assert.True(t, IsHTMX(r))
}

func TestNavigate(t *testing.T) {
	t.Run("browser gets 303", func(t *testing.T) {
		rec := httptest.NewRecorder()
		navigate(rec, httptest.NewRequest(http.MethodGet, "/admin", nil), "/login")

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("htmx gets Hx-Redirect", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/admin", nil)
		r.Header.Set("Hx-Request", "true")
		navigate(rec, r, "/login")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Hx-Redirect"))
		assert.Empty(t, rec.Header().Get("Location"))
	})
}

func TestSetHXRefresh(t *testing.T) {
	rec := httptest.NewRecorder()
	SetHXRefresh(rec)
	assert.Equal(t, "true", rec.Header().Get("Hx-Refresh"))
}
