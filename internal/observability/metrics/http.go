package metrics

import (
	"time"

	"github.com/Vignesh6104/sims-console/internal/observability/statsd"
)

// Console-side metric names.
const (
	MetricHTTPRequest = "http.request"
	MetricGuard       = "guard.decision"
	MetricRateLimited = "http.rate_limited"
)

// HTTPRequestMetric captures one request served by the console.
type HTTPRequestMetric struct {
	Route    string
	Method   string
	Status   int
	Duration time.Duration
}

// EmitHTTPRequest records a served request tagged by route pattern and status class.
func EmitHTTPRequest(sink statsd.Sink, in HTTPRequestMetric) {
	if sink == nil {
		return
	}
	route := in.Route
	if route == "" {
		route = "unmatched"
	}
	tags := map[string]string{
		"route":  route,
		"method": in.Method,
		"status": StatusClass(in.Status),
	}
	sink.Count(MetricHTTPRequest, 1, tags)
	sink.Timing(MetricHTTPRequest, in.Duration, CloneTags(tags))
}

// EmitGuard records a route guard decision.
func EmitGuard(sink statsd.Sink, outcome, reason string) {
	if sink == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	sink.Count(MetricGuard, 1, map[string]string{"outcome": outcome, "reason": reason})
}

// EmitRateLimited records a request rejected by a rate limiter.
func EmitRateLimited(sink statsd.Sink, route string) {
	if sink == nil {
		return
	}
	sink.Count(MetricRateLimited, 1, map[string]string{"route": route})
}
