// Package apiclient is the console's single egress path to the SIMS backend.
//
// Every call attaches the current bearer token from the bound session state. A 401 is
// recovered at most once per request: the refresh token is exchanged for a new access
// token, the token is written back to the session, and the original request is replayed.
// When the exchange fails the session is cleared and the injected expiry handler runs.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/Vignesh6104/sims-console/internal/observability/metrics"
	"github.com/Vignesh6104/sims-console/internal/observability/statsd"
	"github.com/Vignesh6104/sims-console/internal/requestid"
)

// Defaults applied by New when the corresponding option is empty.
const (
	DefaultBaseURL         = "http://localhost:8000"
	DefaultTimeout         = 60 * time.Second
	DefaultRefreshPath     = "/auth/refresh"
	DefaultAccessTokenPath = "access_token"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"

	// maxResponseBytes bounds how much of a backend response is buffered.
	maxResponseBytes = 32 << 20
)

// SessionState is the mutable token holder shared with the route guard.
type SessionState interface {
	AccessToken() string
	RefreshToken() string
	SetAccessToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// SessionExpiredFunc is invoked after an unrecoverable refresh failure has cleared the session.
type SessionExpiredFunc func(ctx context.Context)

// Options configures a Client. Zero values fall back to the package defaults.
type Options struct {
	BaseURL string
	// Timeout applies independently to the original call, the refresh call, and the replay.
	Timeout         time.Duration
	RefreshPath     string
	AccessTokenPath string
	// ShareRefresh collapses concurrent refreshes of the same refresh token into one call.
	ShareRefresh bool
	HTTPClient   *http.Client
	Logger       *slog.Logger
	Metrics      statsd.Sink
}

// Client talks to the SIMS backend. A Client without a session sends unauthenticated requests.
// Use WithSession to derive a Client bound to one session; derived clients share the transport.
type Client struct {
	base        *url.URL
	http        *http.Client
	refreshPath string
	tokenPath   string
	share       bool
	group       *singleflight.Group
	logger      *slog.Logger
	metrics     statsd.Sink

	state     SessionState
	onExpired SessionExpiredFunc
}

// New validates opts and builds a Client.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must use http or https", raw)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", raw)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	refreshPath := strings.TrimSpace(opts.RefreshPath)
	if refreshPath == "" {
		refreshPath = DefaultRefreshPath
	}

	tokenPath := strings.TrimSpace(opts.AccessTokenPath)
	if tokenPath == "" {
		tokenPath = DefaultAccessTokenPath
	}
	if _, compileErr := jmespath.Compile(tokenPath); compileErr != nil {
		return nil, fmt.Errorf("compile access token path %q: %w", tokenPath, compileErr)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:        base,
		http:        hc,
		refreshPath: refreshPath,
		tokenPath:   tokenPath,
		share:       opts.ShareRefresh,
		group:       &singleflight.Group{},
		logger:      logger.With("component", "apiclient"),
		metrics:     opts.Metrics,
	}, nil
}

// WithSession returns a copy of c bound to state. onExpired may be nil.
func (c *Client) WithSession(state SessionState, onExpired SessionExpiredFunc) *Client {
	cp := *c
	cp.state = state
	cp.onExpired = onExpired
	return &cp
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.base.String() }

// Request describes one backend call. Body is JSON-encoded unless it is already
// []byte or json.RawMessage; Form, when set, is sent form-encoded instead.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
	Form   url.Values
	// NoAuth sends the request without a bearer token and never refreshes on 401.
	NoAuth bool
}

// Response is a buffered backend response with a status below 400.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return errors.New("decode response: empty body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// pending threads one request through the send path.
// attempt flips to 1 exactly once, when the request is replayed after a refresh.
type pending struct {
	req         Request
	body        []byte
	contentType string
	attempt     int
	bearer      string
}

func newPending(req Request) (*pending, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	p := &pending{req: req, contentType: contentTypeJSON}

	switch {
	case req.Form != nil:
		p.body = []byte(req.Form.Encode())
		p.contentType = contentTypeForm
	case req.Body != nil:
		switch b := req.Body.(type) {
		case json.RawMessage:
			p.body = b
		case []byte:
			p.body = b
		default:
			data, err := json.Marshal(b)
			if err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
			p.body = data
		}
	}
	return p, nil
}

// Do sends req and applies the refresh protocol on 401.
// Errors are *HTTPError for rejected calls, *RefreshError when the session ended,
// or the transport error unchanged.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	p, err := newPending(req)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, p)
}

func (c *Client) send(ctx context.Context, p *pending) (*Response, error) {
	resp, err := c.roundTrip(ctx, p)
	if err != nil {
		return nil, err
	}
	if resp.Status < http.StatusBadRequest {
		return resp, nil
	}

	herr := &HTTPError{
		Method: p.req.Method,
		Path:   p.req.Path,
		Status: resp.Status,
		Header: resp.Header,
		Body:   resp.Body,
	}
	if resp.Status != http.StatusUnauthorized || p.attempt > 0 || p.req.NoAuth {
		return nil, herr
	}

	p.attempt = 1
	return c.recoverUnauthorized(ctx, p, herr)
}

func (c *Client) recoverUnauthorized(ctx context.Context, p *pending, orig *HTTPError) (*Response, error) {
	refreshToken := ""
	if c.state != nil {
		refreshToken = c.state.RefreshToken()
	}
	if refreshToken == "" {
		metrics.EmitRefresh(c.metrics, metrics.ResultSkipped, nil)
		return nil, orig
	}

	token, err := c.refresh(ctx, refreshToken)
	if err != nil {
		metrics.EmitRefresh(c.metrics, metrics.ResultFailure, err)
		// The caller left; the refresh token says nothing about the session.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.expire(ctx, err)
		return nil, &RefreshError{Err: err}
	}
	metrics.EmitRefresh(c.metrics, metrics.ResultSuccess, nil)

	if err := c.state.SetAccessToken(ctx, token); err != nil {
		c.logger.WarnContext(ctx, "failed to persist refreshed access token", "error", err)
	}

	p.bearer = token
	return c.send(ctx, p)
}

// expire clears the session and notifies the embedding application.
// Cleanup runs detached from ctx so a timed-out refresh still signs the user out.
func (c *Client) expire(ctx context.Context, cause error) {
	c.logger.InfoContext(ctx, "session expired after failed token refresh", "error", cause)

	cleanupCtx := context.WithoutCancel(ctx)
	if err := c.state.Clear(cleanupCtx); err != nil {
		c.logger.WarnContext(ctx, "failed to clear session", "error", err)
	}
	metrics.EmitSessionExpired(c.metrics)

	if c.onExpired != nil {
		c.onExpired(cleanupCtx)
	}
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (string, error) {
	if !c.share {
		return c.requestAccessToken(ctx, refreshToken)
	}
	// The shared call outlives any single caller; the client timeout still bounds it.
	ch := c.group.DoChan(refreshToken, func() (any, error) {
		return c.requestAccessToken(context.WithoutCancel(ctx), refreshToken)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		token, _ := res.Val.(string)
		return token, nil
	}
}

// requestAccessToken exchanges a refresh token at the refresh endpoint.
func (c *Client) requestAccessToken(ctx context.Context, refreshToken string) (string, error) {
	p, err := newPending(Request{
		Method: http.MethodPost,
		Path:   c.refreshPath,
		Body:   map[string]string{"refresh_token": refreshToken},
		NoAuth: true,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.roundTrip(ctx, p)
	if err != nil {
		return "", err
	}
	if resp.Status < http.StatusOK || resp.Status >= http.StatusMultipleChoices {
		return "", &HTTPError{
			Method: p.req.Method,
			Path:   p.req.Path,
			Status: resp.Status,
			Header: resp.Header,
			Body:   resp.Body,
		}
	}
	return c.extractAccessToken(resp.Body)
}

func (c *Client) extractAccessToken(body []byte) (string, error) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	v, err := jmespath.Search(c.tokenPath, data)
	if err != nil {
		return "", fmt.Errorf("evaluate access token path: %w", err)
	}
	token, ok := v.(string)
	if !ok || strings.TrimSpace(token) == "" {
		return "", ErrNoAccessToken
	}
	return token, nil
}

func (c *Client) roundTrip(ctx context.Context, p *pending) (*Response, error) {
	var body io.Reader
	if p.body != nil {
		body = bytes.NewReader(p.body)
	}

	hreq, err := http.NewRequestWithContext(ctx, p.req.Method, c.resolve(p.req.Path, p.req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	hreq.Header.Set("Accept", contentTypeJSON)
	hreq.Header.Set("Content-Type", p.contentType)
	for k, vs := range p.req.Header {
		hreq.Header.Del(k)
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if id := requestid.FromContext(ctx); id != "" {
		hreq.Header.Set(requestid.Header, id)
	}
	if !p.req.NoAuth {
		if token := c.bearer(p); token != "" {
			(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(hreq)
		}
	}

	start := time.Now()
	res, err := c.http.Do(hreq)
	if err != nil {
		metrics.EmitRequest(c.metrics, metrics.RequestMetric{
			Method: p.req.Method, Attempt: p.attempt, Duration: time.Since(start), Err: err,
		})
		return nil, err
	}
	defer func() {
		if cerr := res.Body.Close(); cerr != nil {
			c.logger.DebugContext(ctx, "close response body", "error", cerr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	metrics.EmitRequest(c.metrics, metrics.RequestMetric{
		Method: p.req.Method, Status: res.StatusCode, Attempt: p.attempt, Duration: time.Since(start),
	})
	c.logger.DebugContext(ctx, "backend call",
		"method", p.req.Method,
		"path", p.req.Path,
		"status", res.StatusCode,
		"attempt", p.attempt,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Response{Status: res.StatusCode, Header: res.Header, Body: data}, nil
}

// bearer returns the pending request's override token, else the current session token.
func (c *Client) bearer(p *pending) string {
	if p.bearer != "" {
		return p.bearer
	}
	if c.state == nil {
		return ""
	}
	return c.state.AccessToken()
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	u.RawPath = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	} else {
		u.RawQuery = ""
	}
	return u.String()
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}
