package config

import (
	"fmt"
	"log/slog"
	"strings"
)

const defaultMetricsPrefix = "sims"

// MetricsBackend selects where metrics go.
type MetricsBackend string

const (
	MetricsBackendNone       MetricsBackend = "none"
	MetricsBackendStatsd     MetricsBackend = "statsd"
	MetricsBackendPrometheus MetricsBackend = "prometheus"
)

// UnmarshalText implements encoding.TextUnmarshaler for MetricsBackend.
func (b *MetricsBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "", "none":
		*b = MetricsBackendNone
	case "statsd", "prometheus":
		*b = MetricsBackend(v)
	default:
		return fmt.Errorf("invalid MetricsBackend: %q (valid options: none, statsd, prometheus)", v)
	}
	return nil
}

// ObservabilityConfig groups logging and metrics configuration.
type ObservabilityConfig struct {
	Logging LoggingConfig
	Metrics ObservabilityMetricsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Logging.Sanitize()
	c.Metrics.Sanitize()
}

// LoggingConfig controls the process-wide slog handler.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Sanitize normalises the level and format, falling back to info/json.
func (c *LoggingConfig) Sanitize() {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.Level))); err != nil {
		lvl = slog.LevelInfo
	}
	c.Level = strings.ToLower(lvl.String())

	switch f := strings.ToLower(strings.TrimSpace(c.Format)); f {
	case "json", "text":
		c.Format = f
	default:
		c.Format = "json"
	}
}

// SlogLevel returns the parsed level.
func (c *LoggingConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ObservabilityMetricsConfig controls metric emission.
type ObservabilityMetricsConfig struct {
	Backend       MetricsBackend `env:"OBSERVABILITY_METRICS_BACKEND"        envDefault:"none"`
	StatsdAddress string         `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix        string         `env:"OBSERVABILITY_METRICS_PREFIX"         envDefault:"sims"`
	// Path is where the Prometheus handler is mounted.
	Path string `env:"OBSERVABILITY_METRICS_PATH" envDefault:"/metrics"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = MetricsBackendNone
	}
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.Backend == MetricsBackendStatsd && c.StatsdAddress == "" {
		c.Backend = MetricsBackendNone
	}
	if c.Prefix = strings.Trim(strings.TrimSpace(c.Prefix), "."); c.Prefix == "" {
		c.Prefix = defaultMetricsPrefix
	}
	if c.Path = strings.TrimSpace(c.Path); !strings.HasPrefix(c.Path, "/") {
		c.Path = "/metrics"
	}
}

// IsEnabled returns true when some metrics backend is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Backend != MetricsBackendNone
}
