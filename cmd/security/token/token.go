package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// DefaultRefreshTTLDays is the refresh-token lifetime used when none is configured.
const DefaultRefreshTTLDays = 14

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// ValidateHMACKey trims raw and enforces a minimum byte length.
// Blank -> ErrHMACKeyMissing, shorter than minBytes -> ErrHMACKeyTooShort.
func ValidateHMACKey(raw string, minBytes int) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// TokenExpiry returns now plus the given number of days.
// Non-positive days fall back to DefaultRefreshTTLDays.
func TokenExpiry(days int, now time.Time) time.Time {
	if days <= 0 {
		days = DefaultRefreshTTLDays
	}
	return now.AddDate(0, 0, days)
}

func randomHex(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
