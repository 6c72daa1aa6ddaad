package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Vignesh6104/sims-console/internal/adapters/memstore"
	"github.com/Vignesh6104/sims-console/internal/apiclient"
	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
	mockauth "github.com/Vignesh6104/sims-console/internal/mocks/auth"
	"github.com/Vignesh6104/sims-console/internal/ports"
	"github.com/Vignesh6104/sims-console/internal/service"
)

const testCSRF = "test-csrf-token"

// fakeBackend stands in for the SIMS API. Only tokens in valid are accepted.
type fakeBackend struct {
	mu           sync.Mutex
	valid        map[string]bool
	refreshOK    bool
	refreshCalls int
	lastAuth     string
	lastBody     string
	lastQuery    string
	lastPath     string
}

func (b *fakeBackend) allow(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.valid[token] = true
}

func (b *fakeBackend) revokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.valid = map[string]bool{}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == apiclient.DefaultRefreshPath {
		b.refreshCalls++
		if !b.refreshOK {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Invalid refresh token"}`)
			return
		}
		b.valid["fresh-token"] = true
		_, _ = io.WriteString(w, `{"access_token":"fresh-token","token_type":"bearer"}`)
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.lastAuth = token
	if !b.valid[token] {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Not authenticated"}`)
		return
	}

	body, _ := io.ReadAll(r.Body)
	b.lastBody = string(body)
	b.lastQuery = r.URL.RawQuery
	b.lastPath = r.URL.Path

	switch r.URL.Path {
	case "/students/missing/":
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Student not found"}`)
	case apiclient.PathMyChildren:
		_, _ = io.WriteString(w, `[{"id":7,"class_room_id":3,"name":"Kid"}]`)
	case apiclient.PathAttendance:
		_, _ = io.WriteString(w, `[{"student_id":7,"status":"present"}]`)
	case apiclient.StudentMarksPath("7"):
		_, _ = io.WriteString(w, `[{"subject":"Math","score":90}]`)
	case apiclient.ClassAssignmentsPath("3"):
		_, _ = io.WriteString(w, `[{"title":"Essay"}]`)
	default:
		_ = json.NewEncoder(w).Encode(map[string]string{"path": r.URL.Path, "method": r.Method})
	}
}

// recordingSink counts metric emissions by name.
type recordingSink struct {
	mu     sync.Mutex
	counts map[string]int64
	tags   map[string][]map[string]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{counts: map[string]int64{}, tags: map[string][]map[string]string{}}
}

func (s *recordingSink) Count(name string, value int64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[name] += value
	s.tags[name] = append(s.tags[name], tags)
}

func (s *recordingSink) Gauge(string, float64, map[string]string)        {}
func (s *recordingSink) Timing(string, time.Duration, map[string]string) {}

func (s *recordingSink) count(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[name]
}

func (s *recordingSink) tagsFor(name string) []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.tags[name]...)
}

// failingStore fails every read, leaving hydrated sessions in the loading state.
type failingStore struct{}

func (failingStore) Save(context.Context, domainauth.Session) error { return errors.New("store down") }
func (failingStore) Get(context.Context, string) (domainauth.Session, error) {
	return domainauth.Session{}, errors.New("store down")
}
func (failingStore) Delete(context.Context, string) error { return errors.New("store down") }

var _ ports.SessionStore = failingStore{}

type harness struct {
	t        *testing.T
	backend  *fakeBackend
	sessions ports.SessionStore
	auth     *service.AuthService
	sink     *recordingSink
	handler  http.Handler
}

type harnessOption func(*RouterServices, *harness)

func withSessionStore(store ports.SessionStore) harnessOption {
	return func(_ *RouterServices, h *harness) { h.sessions = store }
}

func withLoginLimiter(l *RateLimiter) harnessOption {
	return func(s *RouterServices, _ *harness) { s.LoginLimiter = l }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		t:        t,
		backend:  &fakeBackend{valid: map[string]bool{}, refreshOK: true},
		sessions: memstore.NewSessionStore(),
		sink:     newRecordingSink(),
	}
	srv := httptest.NewServer(h.backend)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := apiclient.New(apiclient.Options{BaseURL: srv.URL, Timeout: 5 * time.Second, Logger: logger, Metrics: h.sink})
	require.NoError(t, err)

	fsys, err := TemplateFS(false)
	require.NoError(t, err)
	renderer, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: fsys, Logger: logger})
	require.NoError(t, err)

	services := RouterServices{
		Dashboard:  service.NewDashboardService(service.DashboardServiceOptions{Concurrency: 2, Logger: logger}),
		Client:     client,
		Renderer:   renderer,
		RetryAfter: 2 * time.Second,
		Metrics:    h.sink,
		Logger:     logger,
	}
	for _, opt := range opts {
		opt(&services, h)
	}

	h.auth = service.NewAuthService(service.AuthServiceOptions{
		Backend:    mockauth.NewMockAuthBackend(),
		Sessions:   h.sessions,
		SessionTTL: time.Hour,
		Logger:     logger,
	})
	services.Auth = h.auth
	h.handler = NewRouter(services)
	return h
}

// signIn creates a session for username (password "<username>-pass1"), marks its access
// token valid at the backend, and returns the session cookie.
func (h *harness) signIn(username string) (*http.Cookie, domainauth.Session) {
	h.t.Helper()
	res, err := h.auth.Login(context.Background(), service.LoginInput{Username: username, Password: username + "-pass1"})
	require.NoError(h.t, err)
	h.backend.allow(res.Session.AccessToken)
	return &http.Cookie{Name: DefaultCookieName, Value: res.Session.ID}, res.Session
}

func (h *harness) serve(r *http.Request) *httptest.ResponseRecorder {
	h.t.Helper()
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, r)
	return rec
}

// withCSRF attaches a matching CSRF cookie and header.
func withCSRF(r *http.Request) *http.Request {
	r.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: testCSRF})
	r.Header.Set(DefaultCSRFHeaderName, testCSRF)
	return r
}

func apiRequest(method, target string, body io.Reader, cookie *http.Cookie) *http.Request {
	r := httptest.NewRequest(method, target, body)
	r.Header.Set("Accept", "application/json")
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		r.AddCookie(cookie)
	}
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
