package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type call struct {
	kind  string
	name  string
	value float64
	tags  map[string]string
}

type captureSink struct {
	mu    sync.Mutex
	calls []call
}

func (s *captureSink) Count(name string, value int64, tags map[string]string) {
	s.record(call{"count", name, float64(value), tags})
}

func (s *captureSink) Gauge(name string, value float64, tags map[string]string) {
	s.record(call{"gauge", name, value, tags})
}

func (s *captureSink) Timing(name string, value time.Duration, tags map[string]string) {
	s.record(call{"timing", name, float64(value.Milliseconds()), tags})
}

func (s *captureSink) record(c call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func TestEmitRequest(t *testing.T) {
	sink := &captureSink{}
	EmitRequest(sink, RequestMetric{Method: "GET", Status: 401, Attempt: 1, Duration: 20 * time.Millisecond})

	assert.Len(t, sink.calls, 2)
	assert.Equal(t, map[string]string{"method": "GET", "status": "4xx", "attempt": "1"}, sink.calls[0].tags)
	assert.Equal(t, "timing", sink.calls[1].kind)

	sink = &captureSink{}
	EmitRequest(sink, RequestMetric{Method: "POST", Attempt: 2, Err: errors.New("dial")})
	assert.Len(t, sink.calls, 1, "no timing without a duration")
	assert.Equal(t, "error", sink.calls[0].tags["status"])
	assert.Equal(t, "errors_errorstring", sink.calls[0].tags["error_class"])

	EmitRequest(nil, RequestMetric{})
}

func TestEmitHTTPRequest(t *testing.T) {
	sink := &captureSink{}
	EmitHTTPRequest(sink, HTTPRequestMetric{Method: "GET", Status: 303, Duration: time.Millisecond})

	assert.Equal(t, MetricHTTPRequest, sink.calls[0].name)
	assert.Equal(t, "unmatched", sink.calls[0].tags["route"])
	assert.Equal(t, "3xx", sink.calls[0].tags["status"])

	// Timing tags are a copy.
	sink.calls[0].tags["route"] = "changed"
	assert.Equal(t, "unmatched", sink.calls[1].tags["route"])
}

func TestEmitGuardAndRateLimited(t *testing.T) {
	sink := &captureSink{}
	EmitGuard(sink, "render", "")
	EmitGuard(sink, "redirect", "forbidden")
	EmitRateLimited(sink, "/login")
	EmitSessionExpired(sink)
	EmitRefresh(sink, ResultFailure, errors.New("x"))

	assert.Equal(t, "none", sink.calls[0].tags["reason"])
	assert.Equal(t, "forbidden", sink.calls[1].tags["reason"])
	assert.Equal(t, MetricRateLimited, sink.calls[2].name)
	assert.Equal(t, MetricSessionExpired, sink.calls[3].name)
	assert.Equal(t, ResultFailure, sink.calls[4].tags["result"])
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(204))
	assert.Equal(t, "unknown", StatusClass(0))
	assert.Equal(t, "unknown", StatusClass(600))
}
