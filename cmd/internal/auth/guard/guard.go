// Package guard gates HTTP routes by service key or bearer access token.
package guard

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"brandhub/cmd/internal/principal"

	"github.com/caarlos0/env/v11"
)

// ErrUnauthorized is the single failure reported to clients.
var ErrUnauthorized = errors.New("guard: unauthorized")

// UnauthorizedMessage is the client-facing text of every 401.
const UnauthorizedMessage = "Invalid or expired token"

// HeaderAPIKey carries the service key on service routes.
const HeaderAPIKey = "x-api-key"

// Mode selects how a route is gated.
type Mode uint8

const (
	ModePublic Mode = iota
	ModeServiceKey
	ModeBearer
)

func (m Mode) String() string {
	switch m {
	case ModePublic:
		return "public"
	case ModeServiceKey:
		return "service_key"
	case ModeBearer:
		return "bearer"
	default:
		return "unknown"
	}
}

// PublicPaths bypass the gate entirely.
var PublicPaths = []string{"/", "/health", "/liveness", "/readiness", "/metrics"}

// IsPublic reports whether path is one of PublicPaths.
func IsPublic(path string) bool {
	for _, p := range PublicPaths {
		if p == path {
			return true
		}
	}
	return false
}

// Config holds the shared service key.
type Config struct {
	ServiceAPIKey string `env:"SERVICE_API_KEY"`
}

// LoadConfigFromEnv reads BRANDHUB_SERVICE_API_KEY. An empty key makes every
// service route reject.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "BRANDHUB_"}); err != nil {
		return Config{}, fmt.Errorf("guard: config: %w", err)
	}
	cfg.ServiceAPIKey = strings.TrimSpace(cfg.ServiceAPIKey)
	return cfg, nil
}

// AccessVerifier verifies bearer tokens. token.Codec satisfies it.
type AccessVerifier interface {
	VerifyAccessToken(tok string, now time.Time) (principal.Principal, error)
}

// Observer is told about every rejection.
type Observer func(mode Mode)

// Guard checks requests. It holds no mutable state and never touches a store.
type Guard struct {
	apiKey   []byte
	verifier AccessVerifier
	log      *slog.Logger
	observe  Observer
	now      func() time.Time
}

// New builds a Guard. observe may be nil.
func New(cfg Config, verifier AccessVerifier, log *slog.Logger, observe Observer) *Guard {
	if log == nil {
		log = slog.Default()
	}
	if observe == nil {
		observe = func(Mode) {}
	}
	return &Guard{
		apiKey:   []byte(cfg.ServiceAPIKey),
		verifier: verifier,
		log:      log,
		observe:  observe,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Check authorizes r under mode. For ModeBearer the verified principal is
// returned; it is zero otherwise.
func (g *Guard) Check(r *http.Request, mode Mode) (principal.Principal, error) {
	switch mode {
	case ModePublic:
		return principal.Principal{}, nil

	case ModeServiceKey:
		got := []byte(strings.TrimSpace(r.Header.Get(HeaderAPIKey)))
		if len(g.apiKey) == 0 || len(got) == 0 || subtle.ConstantTimeCompare(got, g.apiKey) != 1 {
			return principal.Principal{}, ErrUnauthorized
		}
		return principal.Principal{}, nil

	case ModeBearer:
		tok, ok := BearerToken(r)
		if !ok || g.verifier == nil {
			return principal.Principal{}, ErrUnauthorized
		}
		p, err := g.verifier.VerifyAccessToken(tok, g.now())
		if err != nil {
			return principal.Principal{}, ErrUnauthorized
		}
		return p, nil

	default:
		return principal.Principal{}, ErrUnauthorized
	}
}

// Protect wraps next so that it only runs for authorized requests. Bearer
// routes see the principal through PrincipalFrom.
func (g *Guard) Protect(mode Mode, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		p, err := g.Check(r, mode)
		if err != nil {
			g.observe(mode)
			g.log.Debug("auth.guard.reject", "mode", mode.String(), "path", r.URL.Path)
			WriteUnauthorized(w)
			return
		}
		if mode == ModeBearer {
			r = r.WithContext(WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// WriteUnauthorized writes the uniform 401 envelope.
func WriteUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{Success: false, Message: UnauthorizedMessage})
}

type ctxKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p principal.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFrom returns the principal attached by a bearer route.
func PrincipalFrom(ctx context.Context) (principal.Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(principal.Principal)
	return p, ok && !p.IsZero()
}
