package token

import "errors"

// Public, stable errors for callers.
var (
	ErrConfig           = errors.New("token: invalid config")
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrInvalidPrincipal = errors.New("token: invalid principal")
	ErrHMACKeyMissing   = errors.New("token HMAC key missing")
	ErrHMACKeyTooShort  = errors.New("token HMAC key too short")
)
