package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Vignesh6104/sims-console/internal/apiclient"
	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
	"github.com/Vignesh6104/sims-console/internal/guard"
	"github.com/Vignesh6104/sims-console/internal/observability/metrics"
	"github.com/Vignesh6104/sims-console/internal/observability/statsd"
	"github.com/Vignesh6104/sims-console/internal/requestid"
	"github.com/Vignesh6104/sims-console/internal/session"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := wrapWriter(w)
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", requestid.FromContext(r.Context())),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func wrapWriter(w http.ResponseWriter) *respWriter {
	if rw, ok := w.(*respWriter); ok {
		return rw
	}
	return &respWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *respWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID accepts a well-formed X-Request-ID from the caller or mints one, echoes it
// on the response, and stores it in the request context. The backend client forwards it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := requestid.Sanitize(r.Header.Get(requestid.Header))
		if id == "" {
			id = requestid.New()
		}
		w.Header().Set(requestid.Header, id)
		next.ServeHTTP(w, r.WithContext(requestid.NewContext(r.Context(), id)))
	})
}

// Instrument records a metric per request, tagged with the matched route pattern.
// It must wrap the mux directly so it observes the pattern the mux sets on the request.
func Instrument(sink statsd.Sink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if sink == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := wrapWriter(w)
			next.ServeHTTP(ww, r)
			metrics.EmitHTTPRequest(sink, metrics.HTTPRequestMetric{
				Route:    r.Pattern,
				Method:   r.Method,
				Status:   ww.status,
				Duration: time.Since(start),
			})
		})
	}
}

// SessionOpener creates the session state for a session id.
type SessionOpener interface {
	OpenSession(sessionID string) *session.State
}

// LoadSessionConfig groups dependencies for LoadSession.
type LoadSessionConfig struct {
	Sessions SessionOpener
	Client   *apiclient.Client
	Cookies  CookieConfig
	Logger   *slog.Logger
}

// LoadSession hydrates the caller's session from the cookie and binds a backend client
// to it. A store failure is logged and leaves the state loading, which guarded routes
// answer with a retry instead of a redirect.
func LoadSession(cfg LoadSessionConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/static/") || r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			state := cfg.Sessions.OpenSession(cfg.Cookies.sessionID(r))
			if err := state.Hydrate(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "session hydrate failed",
					slog.Any("error", err),
					slog.String("request_id", requestid.FromContext(r.Context())))
			}

			rs := &requestSession{state: state}
			if cfg.Client != nil {
				rs.client = cfg.Client.WithSession(state, func(context.Context) {
					rs.expired.Store(true)
				})
			}
			next.ServeHTTP(w, r.WithContext(withRequestSession(r.Context(), rs)))
		})
	}
}

// GuardConfig controls how guard decisions are turned into responses.
type GuardConfig struct {
	Renderer *TemplateRenderer
	// RetryAfter is advertised while the session is still loading.
	RetryAfter time.Duration
	Metrics    statsd.Sink
}

func (c GuardConfig) retryAfterSeconds() int {
	secs := int(c.RetryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Guard protects next with policy. It evaluates the request's session snapshot and
// renders next only on an allow decision.
func Guard(cfg GuardConfig, policy guard.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.enforce(w, r, policy) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// enforce evaluates policy for r and writes the wait or redirect response.
// It returns true when the caller may proceed.
func (c GuardConfig) enforce(w http.ResponseWriter, r *http.Request, policy guard.Policy) bool {
	snap := SnapshotFromContext(r.Context())
	d := guard.Evaluate(guard.Input{Loading: snap.Loading, Token: snap.Token, Role: snap.Role}, policy)
	metrics.EmitGuard(c.Metrics, d.Outcome.String(), string(d.Reason))

	switch d.Outcome {
	case guard.OutcomeRender:
		return true
	case guard.OutcomeWait:
		c.writeWait(w, r)
	default:
		c.writeRedirect(w, r, d)
	}
	return false
}

func (c GuardConfig) writeWait(w http.ResponseWriter, r *http.Request) {
	secs := c.retryAfterSeconds()
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	if wantsJSON(r) {
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "session_loading",
			Err:     errors.New("session is still loading, retry shortly"),
		})
		return
	}
	c.Renderer.page(w, r, http.StatusServiceUnavailable, "waiting", PageData{
		Title:       "Loading",
		RedirectURI: r.URL.RequestURI(),
		RetryAfter:  secs,
	})
}

func (c GuardConfig) writeRedirect(w http.ResponseWriter, r *http.Request, d guard.Decision) {
	target := d.Target
	if d.Reason == guard.ReasonUnauthenticated || target == domainauth.LoginRoute {
		if wantsJSON(r) {
			WriteError(w, ErrorParams{
				Code:       http.StatusUnauthorized,
				ErrCode:    "authentication_required",
				Err:        errors.New("authentication required"),
				RedirectTo: domainauth.LoginRoute,
			})
			return
		}
		navigate(w, r, loginURL(r))
		return
	}

	if wantsJSON(r) {
		WriteError(w, ErrorParams{
			Code:       http.StatusForbidden,
			ErrCode:    "forbidden",
			Err:        errors.New("your role cannot access this resource"),
			RedirectTo: target,
		})
		return
	}
	navigate(w, r, target)
}

const (
	defaultLimiterTTL = 10 * time.Minute
	sweepInterval     = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP with a token bucket per address.
type RateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

// NewRateLimiter allows perMinute requests per address with the given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		ttl:      defaultLimiterTTL,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Allow reports whether key may proceed now. Idle addresses are forgotten after the TTL.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= sweepInterval {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.ttl {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// RateLimitConfig groups dependencies for RateLimit.
type RateLimitConfig struct {
	Limiter  *RateLimiter
	Renderer *TemplateRenderer
	Metrics  statsd.Sink
}

// RateLimit rejects callers that exceed the limiter with 429.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.Limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Limiter.Allow(clientIP(r)) {
				next.ServeHTTP(w, r)
				return
			}

			metrics.EmitRateLimited(cfg.Metrics, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			const msg = "Too many attempts. Please wait a minute and try again."
			if wantsJSON(r) {
				WriteError(w, ErrorParams{Code: http.StatusTooManyRequests, ErrCode: "rate_limited", Err: errors.New(msg)})
				return
			}
			cfg.Renderer.page(w, r, http.StatusTooManyRequests, "error", PageData{
				Title: "Slow down",
				Error: msg,
			})
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then the connection address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
