// Package credential persists authentication records.
//
// One record exists per principal. It holds the credential verifier and the
// state of the single live refresh token: its hash, expiry and a revoked
// flag. The plaintext refresh token never reaches this package.
//
// The customer or user row owns the link (auth_id -> authentication.id), so
// resolving the principal behind a record needs the principal kind.
package credential
