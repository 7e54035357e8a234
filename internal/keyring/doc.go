// Package keyring provides durable, encrypted-at-rest storage for the
// refresh token and user profile.
//
// # Overview
//
// Two logical records are kept, the refresh token and the user profile
// JSON. They are written and erased together so a credential is either
// fully present or fully absent. Values are encrypted with NaCl secretbox using
// a key derived from a device key file created on first use.
//
// # Failure Model
//
// Persistence is an optimization, not a correctness requirement. Load
// maps every storage or validation failure to "no credential" after
// logging it; a partially-written record is treated as absent, never
// partially restored. Save and Erase return errors for the caller to log,
// but callers must not let them block in-memory state transitions.
//
// # Storage
//
// Records live in a SQLite database. The access token is never stored;
// it is short-lived and re-derived via refresh at startup.
package keyring
