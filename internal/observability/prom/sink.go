// Package prom exposes console metrics to Prometheus. Sink implements statsd.Sink so the
// backend client and HTTP middleware emit through the same interface regardless of backend.
package prom

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Vignesh6104/sims-console/internal/observability/statsd"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "sims"

// Sink translates dotted metric names into Prometheus vectors registered on first use.
// The label set of a metric is fixed by its first observation; later unknown tags are dropped
// and missing ones are reported as empty.
type Sink struct {
	namespace string
	registry  *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*counter
	gauges     map[string]*gauge
	histograms map[string]*histogram
}

type counter struct {
	vec    *prometheus.CounterVec
	labels []string
}

type gauge struct {
	vec    *prometheus.GaugeVec
	labels []string
}

type histogram struct {
	vec    *prometheus.HistogramVec
	labels []string
}

var _ statsd.Sink = (*Sink)(nil)

// NewSink creates a Sink with its own registry, pre-populated with Go runtime and process collectors.
func NewSink(namespace string) *Sink {
	ns := sanitize(namespace)
	if ns == "" {
		ns = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Sink{
		namespace:  ns,
		registry:   reg,
		counters:   make(map[string]*counter),
		gauges:     make(map[string]*gauge),
		histograms: make(map[string]*histogram),
	}
}

// Registry returns the registry backing the sink.
func (s *Sink) Registry() *prometheus.Registry { return s.registry }

// Handler serves the registry in the Prometheus exposition format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

func (s *Sink) Count(name string, value int64, tags map[string]string) {
	if s == nil || value < 0 {
		return
	}
	metric := sanitize(name)
	if metric == "" {
		return
	}

	s.mu.Lock()
	c, ok := s.counters[metric]
	if !ok {
		labels := labelNames(tags)
		c = &counter{
			vec: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: s.namespace,
				Name:      metric + "_total",
				Help:      "Count of " + name + " events.",
			}, labels),
			labels: labels,
		}
		if !s.register(c.vec) {
			s.mu.Unlock()
			return
		}
		s.counters[metric] = c
	}
	s.mu.Unlock()

	c.vec.WithLabelValues(labelValues(c.labels, tags)...).Add(float64(value))
}

func (s *Sink) Gauge(name string, value float64, tags map[string]string) {
	if s == nil {
		return
	}
	metric := sanitize(name)
	if metric == "" {
		return
	}

	s.mu.Lock()
	g, ok := s.gauges[metric]
	if !ok {
		labels := labelNames(tags)
		g = &gauge{
			vec: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: s.namespace,
				Name:      metric,
				Help:      "Current value of " + name + ".",
			}, labels),
			labels: labels,
		}
		if !s.register(g.vec) {
			s.mu.Unlock()
			return
		}
		s.gauges[metric] = g
	}
	s.mu.Unlock()

	g.vec.WithLabelValues(labelValues(g.labels, tags)...).Set(value)
}

// Timing observes value in seconds on a histogram with the default buckets.
func (s *Sink) Timing(name string, value time.Duration, tags map[string]string) {
	if s == nil {
		return
	}
	metric := sanitize(name)
	if metric == "" {
		return
	}

	s.mu.Lock()
	h, ok := s.histograms[metric]
	if !ok {
		labels := labelNames(tags)
		h = &histogram{
			vec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: s.namespace,
				Name:      metric + "_duration_seconds",
				Help:      "Latency of " + name + " in seconds.",
				Buckets:   prometheus.DefBuckets,
			}, labels),
			labels: labels,
		}
		if !s.register(h.vec) {
			s.mu.Unlock()
			return
		}
		s.histograms[metric] = h
	}
	s.mu.Unlock()

	h.vec.WithLabelValues(labelValues(h.labels, tags)...).Observe(value.Seconds())
}

// register reports whether c was added. A name collision with a different metric type is dropped.
func (s *Sink) register(c prometheus.Collector) bool {
	return s.registry.Register(c) == nil
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		if n := sanitize(k); n != "" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

func labelValues(names []string, tags map[string]string) []string {
	byName := make(map[string]string, len(tags))
	for k, v := range tags {
		byName[sanitize(k)] = v
	}
	values := make([]string, len(names))
	for i, n := range names {
		values[i] = byName[n]
	}
	return values
}

// sanitize maps a dotted StatsD-style name onto the Prometheus name charset.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}
