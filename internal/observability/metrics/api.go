package metrics

import (
	"strconv"
	"time"

	obserrors "github.com/Vignesh6104/sims-console/internal/observability/errors"
	"github.com/Vignesh6104/sims-console/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// Metric names emitted by the backend client.
const (
	MetricRequest        = "api.request"
	MetricRefresh        = "api.refresh"
	MetricSessionExpired = "api.session_expired"
)

// RequestMetric captures one round trip to the backend.
type RequestMetric struct {
	Method   string
	Status   int
	Attempt  int
	Duration time.Duration
	Err      error
}

// EmitRequest records a backend round trip tagged by status class.
func EmitRequest(sink statsd.Sink, in RequestMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"method":  in.Method,
		"status":  StatusClass(in.Status),
		"attempt": strconv.Itoa(in.Attempt),
	}
	if in.Err != nil {
		tags["status"] = "error"
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count(MetricRequest, 1, tags)
	if in.Duration > 0 {
		sink.Timing(MetricRequest, in.Duration, CloneTags(tags))
	}
}

// EmitRefresh records the outcome of a token refresh attempt.
func EmitRefresh(sink statsd.Sink, result string, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"result": result}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count(MetricRefresh, 1, tags)
}

// EmitSessionExpired records a forced sign-out.
func EmitSessionExpired(sink statsd.Sink) {
	if sink == nil {
		return
	}
	sink.Count(MetricSessionExpired, 1, nil)
}

// StatusClass buckets an HTTP status into "2xx", "4xx", and so on.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
