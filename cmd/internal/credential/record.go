package credential

import (
	"context"
	"log/slog"
	"time"

	"brandhub/cmd/internal/principal"
)

// Record mirrors a row of the authentication table.
type Record struct {
	ID string

	// Verifier is the encoded password verifier. Never log or return it.
	Verifier string
	OTP      *string

	RefreshTokenHash      *string
	RefreshTokenExpiresAt *time.Time
	RefreshTokenRevoked   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LogValue keeps secrets out of structured logs.
func (r Record) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", r.ID),
		slog.Bool("has_refresh", r.RefreshTokenHash != nil),
		slog.Bool("refresh_revoked", r.RefreshTokenRevoked),
	)
}

// ActiveAt reports whether the record holds a live refresh token at now.
func (r Record) ActiveAt(now time.Time) bool {
	return r.RefreshTokenHash != nil &&
		!r.RefreshTokenRevoked &&
		r.RefreshTokenExpiresAt != nil &&
		r.RefreshTokenExpiresAt.After(now)
}

// RefreshState is the refresh-token material written by login and rotation.
type RefreshState struct {
	Hash      string
	ExpiresAt time.Time
}

// IssueFunc mints new credentials for the locked record and principal and
// returns the refresh state to persist. An error aborts the rotation.
type IssueFunc func(rec Record, p principal.Principal) (RefreshState, error)

// Store is the persistence boundary for authentication records.
type Store interface {
	// Create inserts a new record. ID must be set.
	Create(ctx context.Context, rec Record) error

	// GetByID loads a record regardless of refresh state.
	GetByID(ctx context.Context, id string) (Record, error)

	// FindActiveByRefreshHash returns the record whose refresh hash matches and
	// which is neither revoked nor expired at now.
	FindActiveByRefreshHash(ctx context.Context, hash string, now time.Time) (Record, error)

	// SetRefresh overwrites the refresh fields and clears the revoked flag.
	SetRefresh(ctx context.Context, id string, st RefreshState, now time.Time) error

	// RevokeByRefreshHash revokes the record matching hash in any state and
	// clears its refresh fields.
	RevokeByRefreshHash(ctx context.Context, hash string, now time.Time) error

	// Rotate atomically validates the presented hash, resolves the principal
	// of the given kind (inactive principals do not match), calls issue and
	// overwrites the refresh fields.
	// Exactly one of any set of concurrent callers presenting the same hash
	// succeeds; the rest get ErrNotFound.
	Rotate(ctx context.Context, kind principal.Kind, hash string, now time.Time, issue IssueFunc) error
}
