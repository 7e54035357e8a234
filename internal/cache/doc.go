// Package cache provides a TTL query cache with hierarchical key
// invalidation, consumed by the API clients and driven by realtime
// push events.
package cache
