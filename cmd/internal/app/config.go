package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains the server runtime configuration.
type Config struct {
	// Env is "development" or "production". Production forces Secure cookies.
	Env string `env:"ENV"`

	HTTPAddr  string `env:"HTTP_ADDR"`
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT"`
	MaxHeaderBytes    int           `env:"HTTP_MAX_HEADER_BYTES"`

	// DatabaseURL selects Postgres; empty runs on in-memory stores.
	DatabaseURL    string `env:"DATABASE_URL"`
	DBMaxConns     int32  `env:"DB_MAX_CONNS"`
	DBMinConns     int32  `env:"DB_MIN_CONNS"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START"`

	// If true, /readiness returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool `env:"READINESS_REQUIRE_DB"`

	// If true, BRANDHUB_TOKEN_HMAC_KEY must be set (>= 32 bytes).
	RequireTokenHMAC bool `env:"REQUIRE_TOKEN_HMAC"`

	CORSAllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	CORSAllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"`
	CORSMaxAgeSeconds    int      `env:"CORS_MAX_AGE_SECONDS"`
}

// DefaultConfig returns development defaults.
func DefaultConfig() Config {
	return Config{
		Env:               "development",
		HTTPAddr:          "0.0.0.0:8080",
		LogLevel:          "info",
		LogFormat:         "json",
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
		DBMaxConns:        10,
		CORSMaxAgeSeconds: 600,
	}
}

// LoadConfig reads BRANDHUB_* variables over DefaultConfig.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "BRANDHUB_"}); err != nil {
		return Config{}, fmt.Errorf("app: config: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	return cfg, nil
}

// Production reports whether the runtime is in production mode.
func (c Config) Production() bool { return c.Env == "production" }
