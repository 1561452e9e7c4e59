// Package app wires the brandhub server runtime: config, logging, stores,
// metrics and HTTP routes.
package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"brandhub/cmd/identity"
	authapi "brandhub/cmd/internal/auth/api"
	"brandhub/cmd/internal/auth/guard"
	"brandhub/cmd/internal/auth/session"
	"brandhub/cmd/internal/credential"
	"brandhub/cmd/security/password"
	"brandhub/cmd/security/token"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the server runtime. It owns the pool and the HTTP handler chain.
type App struct {
	cfg     Config
	log     Logger
	pool    *pgxpool.Pool
	metrics *Metrics
	handler http.Handler
}

// New loads the per-package configs from the environment and wires the app.
// Without BRANDHUB_DATABASE_URL it runs on in-memory stores.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	tokenCfg, err := token.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if err := ValidateSecurityConfig(cfg, tokenCfg, log); err != nil {
		return nil, err
	}
	codec, err := token.NewCodec(tokenCfg)
	if err != nil {
		return nil, err
	}
	refreshHash := "sha256"
	if codec.HMACEnabled() {
		refreshHash = "hmac-sha256"
	}
	log.Info("token.codec.ready",
		"refresh_hash", refreshHash,
		"previous_secret", strings.TrimSpace(tokenCfg.PreviousSecret) != "",
	)

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	guardCfg, err := guard.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	authCfg, err := authapi.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.Production() {
		authCfg.CookieSecure = true
	}
	if guardCfg.ServiceAPIKey == "" {
		log.Warn("guard.service_key.unset", "effect", "service routes reject every request")
	}

	a := &App{cfg: cfg, log: log, metrics: NewMetrics()}

	var (
		creds credential.Store
		ids   identity.Store
		opts  = []authapi.HandlerOption{authapi.WithRecorder(a.metrics)}
	)
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		mem := credential.NewMemoryStore()
		creds, ids = mem, identity.NewMemoryStore(mem)
	} else {
		pool, err := openPostgres(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		log.Info("db.enabled.postgres_store")

		pgCreds, err := credential.NewPostgresStore(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pgIDs, err := identity.NewPostgresStore(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		creds, ids = pgCreds, pgIDs
		opts = append(opts, authapi.WithAuditPool(pool))
	}

	svc, err := session.NewService(sessCfg, codec, creds, pwCfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	g := guard.New(guardCfg, codec, log, a.metrics.GuardRejected)
	auth, err := authapi.NewHandler(log, authCfg, ids, svc, g, pwCfg, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	mux := http.NewServeMux()
	registerHTTP(mux, a, auth)

	a.handler = WithRequestID(
		WithRequestLogging(
			WithSecurityHeaders(WithCORS(mux, cfg, log)),
			log, a.metrics,
		),
	)
	return a, nil
}

// Handler returns the full middleware-wrapped handler.
func (a *App) Handler() http.Handler { return a.handler }

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.pool != nil, "env", a.cfg.Env)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}
	a.Close()

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
