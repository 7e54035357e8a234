// Package session holds the in-memory source of truth for authentication
// state.
//
// # Overview
//
// The Store is the only component permitted to mutate session state. All
// other components read snapshots via Get or observe changes via Subscribe.
// A session is always replaced or cleared as a whole: the access token,
// refresh token, and user profile change together, never partially.
//
// # Persistence
//
// The Store owns the durable-persistence side effect. Set writes the
// refresh token and user profile through the configured Persister, Clear
// erases them. Persistence is best-effort: storage errors are logged and
// never block the in-memory state transition, because the in-memory
// session remains authoritative for the current process lifetime.
//
// # Rehydration Gate
//
// The Rehydrated flag transitions false to true exactly once per process,
// after startup rehydration resolves. Consumers that render
// session-dependent surfaces must wait for it to avoid acting on a state
// that is still being reconstructed.
package session
