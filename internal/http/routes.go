package httpx

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	console "github.com/Vignesh6104/sims-console"
	"github.com/Vignesh6104/sims-console/internal/apiclient"
	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
	"github.com/Vignesh6104/sims-console/internal/guard"
	"github.com/Vignesh6104/sims-console/internal/observability/statsd"
	"github.com/Vignesh6104/sims-console/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth      AuthServiceInterface
	Dashboard *service.DashboardService
	// Client is the unauthenticated backend client; each request derives a session-bound copy.
	Client   *apiclient.Client
	Renderer *TemplateRenderer
	Cookies  CookieConfig
	// RetryAfter is advertised while a session is still loading.
	RetryAfter time.Duration
	// LoginLimiter throttles POST /login per client address (optional).
	LoginLimiter *RateLimiter
	Metrics      statsd.Sink
	// MetricsHandler is mounted at MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string
	IsDev          bool         // Serve static files from disk
	Logger         *slog.Logger // Logger for request and template errors (optional)
}

// Role sets guarding the pass-through API.
var (
	staffOnly   = guard.Roles(domainauth.RoleAdmin, domainauth.RoleTeacher)
	adminOnly   = guard.Roles(domainauth.RoleAdmin)
	parentOnly  = guard.Roles(domainauth.RoleParent)
	anyConsole  = guard.Roles(domainauth.RoleAdmin, domainauth.RoleTeacher, domainauth.RoleParent, domainauth.RoleStudent)
	apiPolicies = []struct {
		pattern string
		policy  guard.Policy
	}{
		{"/api/students/", staffOnly},
		{"/api/class_rooms/", staffOnly},
		{"/api/subjects/", staffOnly},
		{"/api/exams/", staffOnly},
		{"/api/fees/structures", adminOnly},
		{"/api/fees/structures/", adminOnly},
		{"/api/salaries/", adminOnly},
		{"/api/assets/", adminOnly},
		{"/api/parents/my-children/", parentOnly},
		{"/api/attendance/", anyConsole},
		{"/api/marks/student/{id}/", anyConsole},
		{"/api/assignments/class/{id}/", anyConsole},
	}
)

// NewRouter creates the console router with its middleware chain.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	guardCfg := GuardConfig{Renderer: services.Renderer, RetryAfter: services.RetryAfter, Metrics: services.Metrics}
	protect := func(p guard.Policy, h http.Handler) http.Handler { return Guard(guardCfg, p)(h) }

	authHandlers := &AuthHandlers{Svc: services.Auth, Renderer: services.Renderer, Cookies: services.Cookies, Logger: logger}
	pageHandlers := &PageHandlers{Renderer: services.Renderer, Guard: guardCfg}
	apiHandlers := &APIHandlers{
		Dashboard: services.Dashboard,
		Renderer:  services.Renderer,
		Cookies:   services.Cookies,
		Logger:    logger,
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /static/", staticHandler(services.IsDev, logger))
	if services.MetricsHandler != nil {
		path := services.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, services.MetricsHandler)
	}

	registerAuthRoutes(mux, authHandlers, RateLimitConfig{
		Limiter:  services.LoginLimiter,
		Renderer: services.Renderer,
		Metrics:  services.Metrics,
	})

	mux.HandleFunc("GET /{$}", pageHandlers.Home)
	for _, role := range []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleTeacher, domainauth.RoleParent, domainauth.RoleStudent} {
		mux.Handle("GET "+domainauth.LandingRoute(role), protect(guard.Roles(role), pageHandlers.Landing(role)))
	}

	mux.Handle("GET /api/parent/dashboard", protect(parentOnly, http.HandlerFunc(apiHandlers.ParentDashboard)))
	for _, p := range apiPolicies {
		mux.Handle(p.pattern, protect(p.policy, http.HandlerFunc(apiHandlers.Proxy)))
	}
	mux.HandleFunc("/", notFound(services.Renderer))

	var handler http.Handler = mux
	handler = Instrument(services.Metrics)(handler)
	handler = LoadSession(LoadSessionConfig{
		Sessions: services.Auth,
		Client:   services.Client,
		Cookies:  services.Cookies,
		Logger:   logger,
	})(handler)
	handler = CSRFProtection(CSRFConfig{Cookies: services.Cookies})(handler)
	handler = Logging(logger)(handler)
	handler = RequestID(handler)
	return Recover(logger)(handler)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, limit RateLimitConfig) {
	mux.HandleFunc("GET /login", h.LoginPage)
	mux.Handle("POST /login", RateLimit(limit)(http.HandlerFunc(h.Login)))
	mux.HandleFunc("POST /logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
	mux.HandleFunc("GET /reset-password", h.ResetPasswordPage)
	mux.HandleFunc("POST /reset-password", h.ResetPassword)
}

func notFound(renderer *TemplateRenderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if wantsJSON(r) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("no such route")})
			return
		}
		renderer.page(w, r, http.StatusNotFound, "error", PageData{
			Title: "Page not found",
			Error: "The page you requested does not exist.",
		})
	}
}

// staticHandler serves /static from disk in dev mode and from the embedded files otherwise.
func staticHandler(isDev bool, logger *slog.Logger) http.Handler {
	var fsys http.FileSystem
	if isDev {
		fsys = http.Dir("frontend/static")
	} else {
		sub, err := fs.Sub(console.StaticFS, "frontend/static")
		if err != nil {
			logger.Warn("failed to open embedded static files, serving from disk", slog.Any("error", err))
			fsys = http.Dir("frontend/static")
		} else {
			fsys = http.FS(sub)
		}
	}
	return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(noDirListing{fsys})), isDev)
}

func staticWithCacheHeaders(next http.Handler, isDev bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isDev {
			w.Header().Set("Cache-Control", "no-cache")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		}
		next.ServeHTTP(w, r)
	})
}

// noDirListing hides directory indexes.
type noDirListing struct{ fs http.FileSystem }

func (n noDirListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

// TemplateFS returns the template filesystem: the working tree in dev mode, embedded otherwise.
func TemplateFS(isDev bool) (fs.FS, error) {
	if isDev {
		return os.DirFS("frontend/templates"), nil
	}
	return fs.Sub(console.TemplateFS, "frontend/templates")
}
