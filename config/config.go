package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// AppConfig is the console configuration, composed from the per-concern structs in this package.
//
// Values are read from environment variables with github.com/caarlos0/env:
//   - api.go: SIMS backend client
//   - auth.go: sessions and sign-in
//   - redis.go: session store connection
//   - http.go: console HTTP server and cookies
//   - observability.go: logging and metrics
type AppConfig struct {
	// IsDev relaxes cookie security and enables the in-memory session store fallback.
	// Set DEV=true or NODE_ENV=development.
	IsDev bool `env:"DEV" envDefault:"false"`

	API           APIConfig `envPrefix:"API_"`
	Auth          AuthConfig
	Redis         RedisConfig `envPrefix:"REDIS_"`
	HTTP          HTTPConfig
	Observability ObservabilityConfig

	// TokenFile is where sims-admin keeps its token pair. Empty means ~/.sims/tokens.json.
	TokenFile string `env:"SIMS_TOKEN_FILE"`

	// Warnings collects adjustments made by Sanitize so callers can log them once a logger exists.
	Warnings []string
}

// Sanitize applies guardrails to values loaded from the environment.
func (c *AppConfig) Sanitize() {
	c.detectDevMode()

	c.API.Sanitize()
	c.Auth.Sanitize()
	c.HTTP.Sanitize(c.IsDev)
	c.Observability.Sanitize()
	c.TokenFile = strings.TrimSpace(c.TokenFile)

	c.Warnings = append(c.Warnings, c.HTTP.warnings...)
	if c.Auth.Store == SessionStoreMemory && !c.IsDev {
		c.Warnings = append(c.Warnings, "SESSION_STORE=memory outside dev mode: sessions are lost on restart")
	}
}

// Validate reports settings that cannot be corrected automatically.
func (c *AppConfig) Validate() error {
	var errs []error

	u, err := url.Parse(c.API.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("API_BASE_URL: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("API_BASE_URL %q must use http or https", c.API.BaseURL))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("API_BASE_URL %q has no host", c.API.BaseURL))
	}

	if !strings.HasPrefix(c.API.RefreshPath, "/") {
		errs = append(errs, fmt.Errorf("API_REFRESH_PATH %q must start with /", c.API.RefreshPath))
	}

	if c.Auth.Store == SessionStoreRedis && c.Redis.UseCluster && c.Redis.UseSentinel {
		errs = append(errs, errors.New("REDIS_USE_CLUSTER and REDIS_USE_SENTINEL are mutually exclusive"))
	}

	return errors.Join(errs...)
}

// detectDevMode falls back to NODE_ENV when DEV is unset.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
