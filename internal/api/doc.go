// Package api provides thin typed clients for the schedule service's
// resource endpoints: schedules, train types, and favorites.
//
// All calls go through the authenticated transport client, so token
// attachment and refresh are handled transparently. Reads are cached
// under hierarchical query keys; mutations invalidate the affected keys,
// and realtime push events invalidate them from the other direction.
package api
