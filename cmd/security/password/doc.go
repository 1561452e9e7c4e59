// Package password hashes and verifies credential verifiers.
//
// New verifiers are Argon2id in PHC form:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<hash_b64>
//
// Verification also accepts bcrypt verifiers ($2a$, $2b$, $2y$) carried over
// from accounts created before the Argon2id migration.
//
// Stored verifiers are untrusted input during Verify: Argon2id parameters
// far above the configured cost are refused.
package password
