package config

import (
	"strings"
	"time"
)

// APIConfig configures the client that talks to the SIMS backend.
type APIConfig struct {
	// BaseURL is the backend root, e.g. "https://sims.example.edu/api".
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8000"`

	// Timeout bounds each backend call. The refresh call and the replay each get their own budget.
	// The generous default covers backends that cold-start.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"60s"`

	RefreshPath string `env:"REFRESH_PATH" envDefault:"/auth/refresh"`

	// AccessTokenPath is a JMESPath expression locating the access token in the refresh response.
	AccessTokenPath string `env:"ACCESS_TOKEN_PATH" envDefault:"access_token"`

	// ShareRefresh lets concurrent requests holding the same refresh token wait on one refresh call.
	ShareRefresh bool `env:"SHARE_REFRESH" envDefault:"false"`

	// DashboardConcurrency bounds parallel backend calls when building the parent dashboard.
	DashboardConcurrency int `env:"DASHBOARD_CONCURRENCY" envDefault:"4"`
}

// Sanitize trims values and restores defaults for empty or out-of-range settings.
func (c *APIConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8000"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.RefreshPath = strings.TrimSpace(c.RefreshPath); c.RefreshPath == "" {
		c.RefreshPath = "/auth/refresh"
	}
	if c.AccessTokenPath = strings.TrimSpace(c.AccessTokenPath); c.AccessTokenPath == "" {
		c.AccessTokenPath = "access_token"
	}
	if c.DashboardConcurrency < 1 {
		c.DashboardConcurrency = 1
	}
	if c.DashboardConcurrency > 16 {
		c.DashboardConcurrency = 16
	}
}
