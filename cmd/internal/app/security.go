package app

import (
	"errors"
	"log/slog"

	"brandhub/cmd/security/token"
)

// ValidateSecurityConfig enforces the token hashing policy at startup.
// Falling back to plain SHA-256 when HMAC is required is refused.
func ValidateSecurityConfig(cfg Config, tcfg token.Config, log *slog.Logger) error {
	if !cfg.RequireTokenHMAC {
		if cfg.Production() && tcfg.HMACKey == "" {
			log.Warn("security.token_hmac.disabled", "env", cfg.Env)
		}
		return nil
	}

	// Bytes, not runes: the key is used raw.
	if _, err := token.ValidateHMACKey(tcfg.HMACKey, 32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: BRANDHUB_REQUIRE_TOKEN_HMAC=true but BRANDHUB_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: BRANDHUB_REQUIRE_TOKEN_HMAC=true but BRANDHUB_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}
	return nil
}
