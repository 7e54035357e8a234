// ABOUTME: Tests for the favorites and train-type clients
// ABOUTME: Covers caching and cross-resource invalidation on favorite changes

package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const favoriteJSON = `{"id": "fav-1", "scheduleId": "sched-1"}`

func TestFavorites_List(t *testing.T) {
	doer := &fakeDoer{response: "[" + favoriteJSON + "]"}
	f := NewFavorites(doer, testCache(t))

	favorites, err := f.List(t.Context())
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "sched-1", favorites[0].ScheduleID)

	_, err = f.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, doer.requests, 1, "second list served from cache")
}

func TestFavorites_AddInvalidatesScheduleLists(t *testing.T) {
	c := testCache(t)
	doer := &fakeDoer{response: "[" + scheduleJSON + "]"}
	s := NewSchedules(doer, c)
	f := NewFavorites(doer, c)

	_, err := s.List(t.Context(), ScheduleFilter{})
	require.NoError(t, err)

	doer.response = favoriteJSON
	_, err = f.Add(t.Context(), "sched-1")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, doer.requests[1].Method)
	assert.Equal(t, "/favorites", doer.requests[1].Path)

	_, ok := c.Get(ScheduleListKey())
	assert.False(t, ok, "favoriting invalidates schedule lists too")
	_, ok = c.Get(FavoriteListKey())
	assert.False(t, ok)
}

func TestFavorites_RemoveTargetsScheduleRoute(t *testing.T) {
	doer := &fakeDoer{response: favoriteJSON}
	f := NewFavorites(doer, nil)

	_, err := f.Remove(t.Context(), "sched-1")
	require.NoError(t, err)

	assert.Equal(t, http.MethodDelete, doer.requests[0].Method)
	assert.Equal(t, "/favorites/schedule/sched-1", doer.requests[0].Path)
}

func TestTrains_ListTypesCaches(t *testing.T) {
	doer := &fakeDoer{response: `[{"id": "tt-1", "name": "InterCity"}]`}
	tr := NewTrains(doer, testCache(t))

	types, err := tr.ListTypes(t.Context())
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "InterCity", types[0].Name)

	_, err = tr.ListTypes(t.Context())
	require.NoError(t, err)
	assert.Len(t, doer.requests, 1)
}
