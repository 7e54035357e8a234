// Package transport guards the authenticated request path.
//
// # Overview
//
// Every outgoing API call goes through the Client, which attaches the
// current access token, detects authorization failures, and performs at
// most one concurrent refresh system-wide. Callers that race on the same
// expired token share the one in-flight refresh: on success every caller
// is retried exactly once with the new token, on failure every caller
// receives the original authorization error and the session is cleared.
//
// # State Machine
//
// The coordinator is either idle or refreshing. The refreshing state is
// embodied by a singleflight group: the first goroutine to observe a 401
// on the current token performs the refresh, later arrivals block on the
// shared call. A stale-token check inside the flight prevents a second
// refresh when the token already rotated by the time a caller joins.
//
// # Invariants
//
//   - At most one refresh call is in flight system-wide.
//   - No request is retried more than once.
//   - A failed refresh always clears the session; this is the sole
//     trigger for forced logout.
//   - The authentication endpoints themselves never pass through this
//     path; a 401 there is a credential error, not session expiry.
package transport
