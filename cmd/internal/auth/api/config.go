package authapi

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// RefreshCookieName is the cookie that carries the refresh token.
const RefreshCookieName = "refreshToken"

// Config controls auth API transport and throttling.
type Config struct {
	TrustProxy   bool  `env:"TRUST_PROXY"`
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES"`

	// CookieSecure marks the refresh cookie Secure. The app forces it on in production.
	CookieSecure bool   `env:"COOKIE_SECURE"`
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// Failed logins per client IP within LoginIPWindow before 429.
	// Counted from audit_log with a database, in process otherwise.
	LoginIPMax    int           `env:"LOGIN_IP_MAX"`
	LoginIPWindow time.Duration `env:"LOGIN_IP_WINDOW"`
}

// DefaultConfig returns safe defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:  1 << 20,
		LoginIPMax:    20,
		LoginIPWindow: 5 * time.Minute,
	}
}

// LoadConfigFromEnv reads BRANDHUB_AUTH_* over DefaultConfig.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "BRANDHUB_AUTH_"}); err != nil {
		return Config{}, fmt.Errorf("authapi: config: %w", err)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.LoginIPWindow <= 0 {
		cfg.LoginIPWindow = 5 * time.Minute
	}
	return cfg, nil
}
