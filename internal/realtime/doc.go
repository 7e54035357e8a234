// Package realtime maintains the push connection to the schedule
// service and translates server events into cache-invalidation signals.
//
// # Overview
//
// The Channel observes the session store: whenever a session exists it
// keeps exactly one websocket connection open, authenticated by a
// handshake carrying the current access token. When the token rotates
// (including after a coordinator-driven refresh) the old connection is
// torn down before a new one is dialed, so events are never delivered
// twice. When the session is cleared the connection is closed and not
// reopened.
//
// # Events
//
// Three event kinds are accepted, each with an optional identifier:
//
//   - schedule:created        — invalidates the schedule lists
//   - schedule:updated {id}   — invalidates the lists and the detail entry
//   - schedule:deleted {id}   — invalidates the lists and removes the detail entry
//
// The channel performs no business logic; mapping events to keys is its
// entire job.
package realtime
