package session

import (
	"fmt"
	"time"

	"brandhub/cmd/security/token"

	"github.com/caarlos0/env/v11"
)

// Config holds session lifetimes.
type Config struct {
	// AccessTokenTTL is the access token lifetime.
	AccessTokenTTL time.Duration `env:"ACCESS_TTL"`

	// RefreshTTLDays is the refresh token lifetime in whole days.
	RefreshTTLDays int `env:"REFRESH_TTL_DAYS"`
}

// DefaultConfig returns the production lifetimes: 15 minutes and 14 days.
func DefaultConfig() Config {
	return Config{
		AccessTokenTTL: token.DefaultAccessTTL,
		RefreshTTLDays: token.DefaultRefreshTTLDays,
	}
}

// LoadConfigFromEnv reads BRANDHUB_AUTH_ACCESS_TTL and
// BRANDHUB_AUTH_REFRESH_TTL_DAYS over DefaultConfig.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "BRANDHUB_AUTH_"}); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects non-positive lifetimes.
func (c Config) Validate() error {
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("%w: access ttl must be positive", ErrConfig)
	}
	if c.RefreshTTLDays <= 0 {
		return fmt.Errorf("%w: refresh ttl days must be positive", ErrConfig)
	}
	if c.AccessTokenTTL >= time.Duration(c.RefreshTTLDays)*24*time.Hour {
		return fmt.Errorf("%w: access ttl must be shorter than refresh ttl", ErrConfig)
	}
	return nil
}
