package session

import "errors"

var (
	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("session: invalid config")

	// ErrNotFound means the principal has no authentication record.
	ErrNotFound = errors.New("session: credential not found")

	// ErrInvalidCredential means the presented secret did not match.
	ErrInvalidCredential = errors.New("session: invalid credential")

	// ErrMissingToken is returned by Refresh when no refresh token was presented.
	ErrMissingToken = errors.New("session: missing refresh token")

	// ErrInvalidRefreshToken covers unknown, revoked, expired, already rotated
	// and wrong-kind refresh tokens alike.
	ErrInvalidRefreshToken = errors.New("session: invalid or expired refresh token")
)
