package config

import (
	"fmt"
	"strings"
	"time"
)

// SessionStoreMode selects where console sessions are kept.
type SessionStoreMode string

const (
	// SessionStoreRedis keeps sessions in Redis.
	SessionStoreRedis SessionStoreMode = "redis"
	// SessionStoreMemory keeps sessions in process memory (development only).
	SessionStoreMemory SessionStoreMode = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionStoreMode.
func (m *SessionStoreMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "redis", "memory":
		*m = SessionStoreMode(v)
		return nil
	default:
		return fmt.Errorf("invalid SessionStoreMode: %q (valid options: redis, memory)", v)
	}
}

// AuthConfig groups session and sign-in configuration.
type AuthConfig struct {
	Store SessionStoreMode `env:"SESSION_STORE" envDefault:"redis"`

	// SessionTTL bounds a console session regardless of token lifetimes.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"168h"`

	// JWTSecret, when set, verifies HS256 access tokens before trusting their role claim.
	// Empty means claims are read without verification; the backend remains the authority.
	JWTSecret string `env:"AUTH_JWT_SECRET"`

	// LoginRatePerMinute and LoginBurst throttle POST /login per client address.
	LoginRatePerMinute int `env:"LOGIN_RATE_PER_MINUTE" envDefault:"10"`
	LoginBurst         int `env:"LOGIN_BURST"           envDefault:"5"`
}

// Sanitize applies guardrails to auth configuration values.
func (c *AuthConfig) Sanitize() {
	if c.Store == "" {
		c.Store = SessionStoreRedis
	}
	if c.SessionTTL < time.Minute {
		c.SessionTTL = 168 * time.Hour
	}
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)
	if c.LoginRatePerMinute < 0 {
		c.LoginRatePerMinute = 0
	}
	if c.LoginBurst < 1 {
		c.LoginBurst = 1
	}
}

// LoginRateLimited reports whether sign-in throttling is active.
func (c *AuthConfig) LoginRateLimited() bool {
	return c.LoginRatePerMinute > 0
}
