package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable read by LoadConfigFromEnv.
const EnvPrefix = "BRANDHUB_"

// Config is the explicit codec configuration.
type Config struct {
	// Secret signs and verifies HS256 access tokens. Required.
	Secret string `env:"JWT_SECRET"`

	// PreviousSecret, when set, is accepted for verification only. New tokens
	// are always signed with Secret, so a rotated-out secret keeps working
	// until its tokens expire.
	PreviousSecret string `env:"JWT_SECRET_PREVIOUS"`

	// Issuer is written to and required in the "iss" claim.
	Issuer string `env:"JWT_ISSUER"`

	// Leeway tolerates clock skew on exp/nbf checks.
	Leeway time.Duration `env:"JWT_LEEWAY"`

	// HMACKey switches refresh-token hashing to HMAC-SHA256 when set.
	HMACKey string `env:"TOKEN_HMAC_KEY"`

	// RefreshTokenBytes is the entropy of opaque refresh tokens (hex doubles the length).
	RefreshTokenBytes int `env:"REFRESH_TOKEN_BYTES"`
}

// DefaultConfig returns defaults for everything except the signing secret.
func DefaultConfig() Config {
	return Config{
		Issuer:            "brandhub",
		RefreshTokenBytes: 32,
	}
}

// LoadConfigFromEnv loads codec configuration from the environment.
//
// Required:
//   - BRANDHUB_JWT_SECRET
//
// Optional:
//   - BRANDHUB_JWT_SECRET_PREVIOUS
//   - BRANDHUB_JWT_ISSUER
//   - BRANDHUB_JWT_LEEWAY
//   - BRANDHUB_TOKEN_HMAC_KEY
//   - BRANDHUB_REFRESH_TOKEN_BYTES (32..64)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports ErrConfig for unusable settings.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Secret) == "" {
		return fmt.Errorf("%w: signing secret is required", ErrConfig)
	}
	if strings.TrimSpace(c.Issuer) == "" {
		return fmt.Errorf("%w: issuer is required", ErrConfig)
	}
	if c.Leeway < 0 {
		return fmt.Errorf("%w: negative leeway", ErrConfig)
	}
	if c.RefreshTokenBytes < 32 || c.RefreshTokenBytes > 64 {
		return fmt.Errorf("%w: refresh token bytes must be in [32..64]", ErrConfig)
	}
	return nil
}
