package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"brandhub/cmd/internal/credential"
	"brandhub/cmd/internal/principal"
	"brandhub/cmd/security/password"
	"brandhub/cmd/security/token"
)

// maxPresentedToken bounds the presented refresh token before hashing.
const maxPresentedToken = 4096

// Verifier checks a plaintext secret against an encoded verifier.
type Verifier interface {
	Hash(plain string) (string, error)
	Verify(encoded, plain string) (bool, error)
}

// Issued is the credential pair returned by Login and Refresh.
type Issued struct {
	Principal    principal.Principal
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// Service implements the session lifecycle over a credential.Store.
type Service struct {
	cfg      Config
	codec    *token.Codec
	creds    credential.Store
	verifier Verifier
	log      *slog.Logger

	// dummy is verified against when the principal is unknown so that the
	// miss path costs the same as a wrong password.
	dummy string
}

// NewService validates cfg and wires the collaborators.
func NewService(cfg Config, codec *token.Codec, creds credential.Store, verifier Verifier, log *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if codec == nil || creds == nil || verifier == nil {
		return nil, fmt.Errorf("%w: missing dependency", ErrConfig)
	}
	if log == nil {
		log = slog.Default()
	}

	seed, err := codec.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}
	dummy, err := verifier.Hash(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: dummy verifier: %v", ErrConfig, err)
	}

	return &Service{cfg: cfg, codec: codec, creds: creds, verifier: verifier, log: log, dummy: dummy}, nil
}

// Login verifies secret against the record authID and issues a fresh pair.
// Any previous refresh token of the record stops working.
func (s *Service) Login(ctx context.Context, now time.Time, p principal.Principal, authID, secret string) (Issued, error) {
	rec, err := s.creds.GetByID(ctx, authID)
	if credential.IsNotFound(err) {
		s.RejectUnknown(secret)
		return Issued{}, ErrNotFound
	}
	if err != nil {
		return Issued{}, fmt.Errorf("session: load credential: %w", err)
	}

	ok, err := s.verifier.Verify(rec.Verifier, secret)
	if errors.Is(err, password.ErrInvalidHash) {
		s.log.Warn("auth.login.bad_verifier", "kind", p.Kind.String(), "record", rec)
		return Issued{}, ErrInvalidCredential
	}
	if err != nil {
		return Issued{}, fmt.Errorf("session: verify: %w", err)
	}
	if !ok {
		return Issued{}, ErrInvalidCredential
	}

	out, st, err := s.issue(p, now)
	if err != nil {
		return Issued{}, err
	}
	if err := s.creds.SetRefresh(ctx, rec.ID, st, now); err != nil {
		return Issued{}, fmt.Errorf("session: persist refresh: %w", err)
	}
	return out, nil
}

// RejectUnknown burns one verification against a throwaway verifier.
func (s *Service) RejectUnknown(secret string) {
	_, _ = s.verifier.Verify(s.dummy, secret)
}

// Refresh rotates the presented refresh token for a principal of kind.
func (s *Service) Refresh(ctx context.Context, now time.Time, kind principal.Kind, presented string) (Issued, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return Issued{}, ErrMissingToken
	}
	if len(presented) > maxPresentedToken || !kind.Valid() {
		return Issued{}, ErrInvalidRefreshToken
	}

	var out Issued
	err := s.creds.Rotate(ctx, kind, s.codec.HashToken(presented), now,
		func(_ credential.Record, p principal.Principal) (credential.RefreshState, error) {
			issued, st, err := s.issue(p, now)
			if err != nil {
				return credential.RefreshState{}, err
			}
			out = issued
			return st, nil
		})
	if credential.IsNotFound(err) {
		return Issued{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return Issued{}, fmt.Errorf("session: rotate: %w", err)
	}
	return out, nil
}

// Logout revokes the presented refresh token. It never fails: an empty or
// unknown token is a no-op and store errors are only logged.
func (s *Service) Logout(ctx context.Context, now time.Time, presented string) {
	presented = strings.TrimSpace(presented)
	if presented == "" || len(presented) > maxPresentedToken {
		return
	}

	err := s.creds.RevokeByRefreshHash(ctx, s.codec.HashToken(presented), now)
	switch {
	case err == nil:
	case credential.IsNotFound(err):
		s.log.Debug("auth.logout.unknown_token")
	default:
		s.log.Error("auth.logout.store_error", "err", err)
	}
}

// VerifyAccessToken exposes the codec check to transport layers.
func (s *Service) VerifyAccessToken(tok string, now time.Time) (principal.Principal, error) {
	return s.codec.VerifyAccessToken(tok, now)
}

// Config returns the lifetimes in effect.
func (s *Service) Config() Config { return s.cfg }

func (s *Service) issue(p principal.Principal, now time.Time) (Issued, credential.RefreshState, error) {
	access, accessExp, err := s.codec.SignAccessToken(p, s.cfg.AccessTokenTTL, now)
	if err != nil {
		return Issued{}, credential.RefreshState{}, fmt.Errorf("session: sign access token: %w", err)
	}
	refresh, err := s.codec.GenerateOpaqueToken()
	if err != nil {
		return Issued{}, credential.RefreshState{}, fmt.Errorf("session: generate refresh token: %w", err)
	}
	refreshExp := token.TokenExpiry(s.cfg.RefreshTTLDays, now)

	return Issued{
			Principal:    p,
			AccessToken:  access,
			AccessExp:    accessExp,
			RefreshToken: refresh,
			RefreshExp:   refreshExp,
		}, credential.RefreshState{
			Hash:      s.codec.HashToken(refresh),
			ExpiresAt: refreshExp,
		}, nil
}
