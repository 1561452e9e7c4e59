// Package principal defines the authenticated parties of brandhub.
//
// A principal is either a customer or a user (staff). Both carry a stable
// UUID reference that is safe to expose in tokens and API responses.
package principal

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Kind tags which principal table a reference belongs to.
type Kind uint8

const (
	// KindUnknown is the zero value and never valid on the wire.
	KindUnknown Kind = iota
	// KindCustomer is an end customer of a brand.
	KindCustomer
	// KindUser is an internal/staff user.
	KindUser
)

// ErrUnknownKind is returned by ParseKind for unsupported values.
var ErrUnknownKind = errors.New("unknown principal kind")

// ParseKind parses the wire form ("customer", "user").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer":
		return KindCustomer, nil
	case "user":
		return KindUser, nil
	default:
		return KindUnknown, ErrUnknownKind
	}
}

func (k Kind) String() string {
	switch k {
	case KindCustomer:
		return "customer"
	case KindUser:
		return "user"
	default:
		return "unknown"
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindCustomer || k == KindUser
}

// Principal identifies an authenticated customer or user.
type Principal struct {
	Kind Kind
	Ref  uuid.UUID
}

// IsZero reports whether p is unset.
func (p Principal) IsZero() bool {
	return p.Kind == KindUnknown && p.Ref == uuid.Nil
}

func (p Principal) String() string {
	return p.Kind.String() + ":" + p.Ref.String()
}
