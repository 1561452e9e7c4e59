package identity

import (
	"context"
	"strings"
	"time"

	"brandhub/cmd/internal/principal"
)

// Account is a customer or user together with its authentication link.
type Account struct {
	ID        string
	Principal principal.Principal
	AuthID    string

	Name        string
	Email       *string
	CountryCode *string
	Phone       *string

	// Role applies to users only.
	Role string
	// IsVerified applies to customers only.
	IsVerified bool
	IsActive   bool

	CreatedAt time.Time
}

// RegisterInput creates a principal and its authentication record.
// Verifier is an already-encoded password verifier.
type RegisterInput struct {
	Kind       principal.Kind
	Name       string
	Identifier Identifier
	Role       string
	Verifier   string
	Now        time.Time
}

// DefaultUserRole is assigned when a user is registered without a role.
const DefaultUserRole = "staff"

// Store is the principal persistence boundary.
type Store interface {
	// Register creates the authentication record and the principal atomically.
	Register(ctx context.Context, in RegisterInput) (Account, error)

	// FindForLogin resolves an active principal of kind by identifier.
	// Unknown, inactive and unlinked principals are ErrNotFound.
	FindForLogin(ctx context.Context, kind principal.Kind, id Identifier) (Account, error)

	// GetByRef loads a principal by its public reference.
	GetByRef(ctx context.Context, p principal.Principal) (Account, error)

	// SetActive enables or disables a principal. Disabled principals cannot
	// log in and their refresh tokens stop rotating.
	SetActive(ctx context.Context, p principal.Principal, active bool) error
}

func (in RegisterInput) validate(op string) (RegisterInput, error) {
	if !in.Kind.Valid() {
		return in, invalid(op, "unknown principal kind")
	}
	id, ok := in.Identifier.NormalizeAll()
	if !ok {
		return in, invalid(op, "email or country code and phone are required")
	}
	in.Identifier = id
	if in.Name = strings.TrimSpace(in.Name); in.Name == "" {
		return in, invalid(op, "name is required")
	}
	if in.Verifier == "" {
		return in, invalid(op, "verifier is required")
	}
	if in.Kind == principal.KindUser && strings.TrimSpace(in.Role) == "" {
		in.Role = DefaultUserRole
	}
	if in.Kind == principal.KindCustomer {
		in.Role = ""
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	return in, nil
}
