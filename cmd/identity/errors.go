package identity

import "errors"

// Error classes. Callers match them with errors.Is; the HTTP layer maps
// them to 400, 404 and 409.
var (
	ErrInvalidInput = errors.New("identity: invalid input")
	ErrNotFound     = errors.New("identity: not found")
	ErrConflict     = errors.New("identity: already registered")
)

// Error wraps an error class with the failing operation. Detail names the
// offending field or rule and never carries secrets.
type Error struct {
	Op     string
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Kind }

func IsConflict(err error) bool     { return errors.Is(err, ErrConflict) }
func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

func invalid(op, detail string) error { return &Error{Op: op, Kind: ErrInvalidInput, Detail: detail} }
func notFound(op string) error        { return &Error{Op: op, Kind: ErrNotFound} }

// conflict reports a uniqueness violation on field ("email", "phone", "ref_id").
func conflict(op, field string) error { return &Error{Op: op, Kind: ErrConflict, Detail: field} }
