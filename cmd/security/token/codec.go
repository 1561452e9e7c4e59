package token

import (
	"fmt"
	"strings"
	"time"

	"brandhub/cmd/internal/principal"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// DefaultAccessTTL is applied when SignAccessToken receives a non-positive ttl.
const DefaultAccessTTL = 15 * time.Minute

const typeAccess = "access"

// accessClaims is the JWT payload. sub carries the principal reference.
type accessClaims struct {
	jwt.RegisteredClaims
	Kind      string `json:"kind"`
	TokenType string `json:"typ"`
}

// Codec signs and verifies access tokens and handles refresh-token material.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	secret  []byte
	verify  any // []byte, or jwt.VerificationKeySet with a previous secret
	hmacKey []byte
	issuer  string
	leeway  time.Duration
	nBytes  int
}

// NewCodec validates cfg and returns a ready Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.RefreshTokenBytes == 0 {
		cfg.RefreshTokenBytes = DefaultConfig().RefreshTokenBytes
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultConfig().Issuer
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Codec{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		leeway: cfg.Leeway,
		nBytes: cfg.RefreshTokenBytes,
	}
	c.verify = c.secret
	if prev := strings.TrimSpace(cfg.PreviousSecret); prev != "" && prev != cfg.Secret {
		c.verify = jwt.VerificationKeySet{Keys: []jwt.VerificationKey{c.secret, []byte(prev)}}
	}
	if key := strings.TrimSpace(cfg.HMACKey); key != "" {
		c.hmacKey = []byte(key)
	}
	return c, nil
}

// SignAccessToken issues an HS256 access token for p valid until now+ttl.
func (c *Codec) SignAccessToken(p principal.Principal, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if !p.Kind.Valid() || p.Ref == uuid.Nil {
		return "", time.Time{}, ErrInvalidPrincipal
	}
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}

	exp := now.Add(ttl).Truncate(jwt.TimePrecision)
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Issuer:    c.issuer,
			Subject:   p.Ref.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Kind:      p.Kind.String(),
		TokenType: typeAccess,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// VerifyAccessToken checks signature, algorithm, issuer and expiry at now and
// returns the embedded principal. Every failure maps to ErrInvalidToken.
func (c *Codec) VerifyAccessToken(tok string, now time.Time) (principal.Principal, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" || len(tok) > 4096 {
		return principal.Principal{}, ErrInvalidToken
	}

	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(tok, claims,
		func(*jwt.Token) (any, error) { return c.verify, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(c.issuer),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return principal.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.TokenType != typeAccess {
		return principal.Principal{}, ErrInvalidToken
	}

	kind, err := principal.ParseKind(claims.Kind)
	if err != nil {
		return principal.Principal{}, ErrInvalidToken
	}
	ref, err := uuid.Parse(claims.Subject)
	if err != nil || ref == uuid.Nil {
		return principal.Principal{}, ErrInvalidToken
	}

	return principal.Principal{Kind: kind, Ref: ref}, nil
}

// GenerateOpaqueToken returns a fresh hex-encoded refresh token.
func (c *Codec) GenerateOpaqueToken() (string, error) {
	return randomHex(c.nBytes)
}

// HashToken returns the 64-char hex storage digest of a refresh token.
func (c *Codec) HashToken(tok string) string {
	if len(c.hmacKey) == 0 {
		return HashSHA256Hex(tok)
	}
	return HashHMACSHA256Hex(tok, c.hmacKey)
}

// HMACEnabled reports whether refresh hashing is keyed.
func (c *Codec) HMACEnabled() bool { return len(c.hmacKey) > 0 }
