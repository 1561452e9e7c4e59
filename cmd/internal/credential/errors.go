package credential

import (
	"errors"
	"fmt"
)

// Sentinel error kinds.
var (
	// ErrNotFound means no record matched. For refresh lookups this also
	// covers revoked, expired and wrong-kind records.
	ErrNotFound = errors.New("credential: not found")
	// ErrConflict reports a uniqueness violation.
	ErrConflict = errors.New("credential: conflict")
	// ErrInvalidInput reports a malformed call.
	ErrInvalidInput = errors.New("credential: invalid input")
)

// OpError carries the failing operation alongside a sentinel kind.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func notFound(op string) error { return OpError{Op: op, Kind: ErrNotFound} }
