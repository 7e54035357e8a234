// ABOUTME: Schedule CRUD client with read-through caching
// ABOUTME: Mutations invalidate the list and detail keys they touch

package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/2389/railboard/internal/cache"
	"github.com/2389/railboard/internal/transport"
)

// Doer executes authenticated requests. Implemented by the transport
// client.
type Doer interface {
	Do(ctx context.Context, req transport.Request, out any) error
}

// Schedules is the client for the /schedules resource.
type Schedules struct {
	client Doer
	cache  *cache.Cache
}

// NewSchedules creates a schedule client. The cache may be nil to
// disable caching.
func NewSchedules(client Doer, c *cache.Cache) *Schedules {
	return &Schedules{client: client, cache: c}
}

// List returns schedules matching the filter.
func (s *Schedules) List(ctx context.Context, filter ScheduleFilter) ([]Schedule, error) {
	key := listKey(filter)
	if cached, ok := s.cached(key); ok {
		if schedules, ok := cached.([]Schedule); ok {
			return schedules, nil
		}
	}

	var schedules []Schedule
	err := s.client.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/schedules",
		Query:  filter.values(),
	}, &schedules)
	if err != nil {
		return nil, err
	}

	s.store(key, schedules)
	return schedules, nil
}

// Get returns one schedule by ID.
func (s *Schedules) Get(ctx context.Context, id string) (Schedule, error) {
	key := ScheduleDetailKey(id)
	if cached, ok := s.cached(key); ok {
		if schedule, ok := cached.(Schedule); ok {
			return schedule, nil
		}
	}

	var schedule Schedule
	err := s.client.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/schedules/" + url.PathEscape(id),
	}, &schedule)
	if err != nil {
		return Schedule{}, err
	}

	s.store(key, schedule)
	return schedule, nil
}

// Create adds a schedule and invalidates the lists.
func (s *Schedules) Create(ctx context.Context, input CreateScheduleInput) (Schedule, error) {
	var schedule Schedule
	err := s.client.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/schedules",
		Body:   input,
	}, &schedule)
	if err != nil {
		return Schedule{}, err
	}

	s.invalidate(ScheduleListKey())
	return schedule, nil
}

// Update patches a schedule and invalidates the lists and its detail
// entry.
func (s *Schedules) Update(ctx context.Context, id string, input UpdateScheduleInput) (Schedule, error) {
	var schedule Schedule
	err := s.client.Do(ctx, transport.Request{
		Method: http.MethodPatch,
		Path:   "/schedules/" + url.PathEscape(id),
		Body:   input,
	}, &schedule)
	if err != nil {
		return Schedule{}, err
	}

	s.invalidate(ScheduleListKey())
	s.invalidate(ScheduleDetailKey(id))
	return schedule, nil
}

// Delete removes a schedule, invalidates the lists, and drops its detail
// entry.
func (s *Schedules) Delete(ctx context.Context, id string) (Schedule, error) {
	var schedule Schedule
	err := s.client.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   "/schedules/" + url.PathEscape(id),
	}, &schedule)
	if err != nil {
		return Schedule{}, err
	}

	s.invalidate(ScheduleListKey())
	if s.cache != nil {
		s.cache.Remove(ScheduleDetailKey(id))
	}
	return schedule, nil
}

func (s *Schedules) cached(key string) (any, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *Schedules) store(key string, value any) {
	if s.cache != nil {
		s.cache.Set(key, value)
	}
}

func (s *Schedules) invalidate(key string) {
	if s.cache != nil {
		s.cache.Invalidate(key)
	}
}

// listKey builds the cache key for a filtered listing. The unfiltered
// list uses the bare list key so invalidating it also drops every
// filtered variant.
func listKey(filter ScheduleFilter) string {
	values := filter.values()
	if len(values) == 0 {
		return ScheduleListKey()
	}
	return ScheduleListKey() + "/" + values.Encode()
}

func (f ScheduleFilter) values() url.Values {
	values := url.Values{}
	if f.DateFrom != "" {
		values.Set("dateFrom", f.DateFrom)
	}
	if f.DateTo != "" {
		values.Set("dateTo", f.DateTo)
	}
	if f.RouteName != "" {
		values.Set("routeName", f.RouteName)
	}
	if f.TrainTypeID != "" {
		values.Set("trainTypeId", f.TrainTypeID)
	}
	return values
}
