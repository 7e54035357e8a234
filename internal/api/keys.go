// ABOUTME: Hierarchical query keys shared by the API clients, the cache, and the push channel
// ABOUTME: Key layout mirrors the resource endpoints: lists invalidate with their filters

package api

// Query keys. Invalidating a list key also drops its filtered variants.
func ScheduleListKey() string            { return "schedules/list" }
func ScheduleDetailKey(id string) string { return "schedules/detail/" + id }
func FavoriteListKey() string            { return "favorites/list" }
func TrainTypesKey() string              { return "train-types" }
