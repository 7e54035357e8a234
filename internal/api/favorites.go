// ABOUTME: Favorites client for pinning schedules
// ABOUTME: Mutations invalidate both the favorites list and the schedule lists

package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/2389/railboard/internal/cache"
	"github.com/2389/railboard/internal/transport"
)

// Favorites is the client for the /favorites resource.
type Favorites struct {
	client Doer
	cache  *cache.Cache
}

// NewFavorites creates a favorites client. The cache may be nil.
func NewFavorites(client Doer, c *cache.Cache) *Favorites {
	return &Favorites{client: client, cache: c}
}

// List returns the current user's favorites.
func (f *Favorites) List(ctx context.Context) ([]Favorite, error) {
	if f.cache != nil {
		if cached, ok := f.cache.Get(FavoriteListKey()); ok {
			if favorites, ok := cached.([]Favorite); ok {
				return favorites, nil
			}
		}
	}

	var favorites []Favorite
	err := f.client.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/favorites",
	}, &favorites)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		f.cache.Set(FavoriteListKey(), favorites)
	}
	return favorites, nil
}

// Add pins a schedule.
func (f *Favorites) Add(ctx context.Context, scheduleID string) (Favorite, error) {
	var favorite Favorite
	err := f.client.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/favorites",
		Body:   map[string]string{"scheduleId": scheduleID},
	}, &favorite)
	if err != nil {
		return Favorite{}, err
	}

	f.invalidate()
	return favorite, nil
}

// Remove unpins a schedule.
func (f *Favorites) Remove(ctx context.Context, scheduleID string) (Favorite, error) {
	var favorite Favorite
	err := f.client.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   "/favorites/schedule/" + url.PathEscape(scheduleID),
	}, &favorite)
	if err != nil {
		return Favorite{}, err
	}

	f.invalidate()
	return favorite, nil
}

func (f *Favorites) invalidate() {
	if f.cache == nil {
		return
	}
	// Favoriting affects how schedules render, so both lists go stale.
	f.cache.Invalidate(FavoriteListKey())
	f.cache.Invalidate(ScheduleListKey())
}
