// Package session implements the login, refresh and logout lifecycle.
//
// A login issues a short-lived HS256 access token together with an opaque
// refresh token. Only the refresh token's digest is persisted. Every refresh
// rotates the token inside a single store transaction, so a presented token
// mints credentials at most once.
//
// Transport concerns (cookies, status codes) live in authapi.
package session
