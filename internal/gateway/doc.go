// Package gateway implements the stateless network operations against the
// remote authority: login, register, refresh, and logout.
//
// # Overview
//
// The Gateway holds no session state. Callers receive a complete Session
// from login, register, and refresh, and decide themselves what to do
// with it. Logout is best-effort: callers must clear local state
// regardless of the remote outcome.
//
// # Errors
//
// Server-side rejections (bad credentials, expired or revoked refresh
// tokens, validation failures) surface as *AuthError carrying the
// server's display-ready message. Transport failures, timeouts, and
// malformed responses surface as *NetworkError. Check with errors.As.
package gateway
