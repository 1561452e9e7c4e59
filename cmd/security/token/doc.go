// Package token is the stateless token codec for brandhub sessions.
//
// It signs and verifies short-lived HS256 access tokens (JWT), generates
// opaque refresh tokens, and hashes refresh tokens for server-side storage.
//
// Refresh-token hashing:
//   - SHA-256(token) when no hash key is configured.
//   - HMAC-SHA256(token, key) when BRANDHUB_TOKEN_HMAC_KEY is set.
//
// Both produce a stable 64-char hex digest. The codec never reads the
// environment on its own; callers inject a Config.
package token
