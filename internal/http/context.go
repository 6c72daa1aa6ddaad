package httpx

import (
	"context"
	"sync/atomic"

	"github.com/Vignesh6104/sims-console/internal/apiclient"
	"github.com/Vignesh6104/sims-console/internal/session"
)

// requestSession is the per-request view of the caller's console session: the hydrated
// state, a backend client bound to it, and whether the client ended the session.
type requestSession struct {
	state   *session.State
	client  *apiclient.Client
	expired atomic.Bool
}

type requestSessionKey struct{}

func withRequestSession(ctx context.Context, rs *requestSession) context.Context {
	return context.WithValue(ctx, requestSessionKey{}, rs)
}

func requestSessionFrom(ctx context.Context) *requestSession {
	rs, _ := ctx.Value(requestSessionKey{}).(*requestSession)
	return rs
}

// SessionStateFromContext returns the session state loaded for the request, or nil
// when LoadSession did not run.
func SessionStateFromContext(ctx context.Context) *session.State {
	if rs := requestSessionFrom(ctx); rs != nil {
		return rs.state
	}
	return nil
}

// SnapshotFromContext returns the request's session snapshot. Without LoadSession it
// reports a signed-out, non-loading session.
func SnapshotFromContext(ctx context.Context) session.Snapshot {
	if st := SessionStateFromContext(ctx); st != nil {
		return st.Snapshot()
	}
	return session.Snapshot{}
}

// ClientFromContext returns the backend client bound to the request's session.
func ClientFromContext(ctx context.Context) *apiclient.Client {
	if rs := requestSessionFrom(ctx); rs != nil {
		return rs.client
	}
	return nil
}

// sessionExpired reports whether a backend call during this request ended the session.
func sessionExpired(ctx context.Context) bool {
	rs := requestSessionFrom(ctx)
	return rs != nil && rs.expired.Load()
}
