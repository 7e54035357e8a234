// ABOUTME: Train type listing client
// ABOUTME: Train types change rarely, so results are cached until invalidated

package api

import (
	"context"
	"net/http"

	"github.com/2389/railboard/internal/cache"
	"github.com/2389/railboard/internal/transport"
)

// Trains is the client for the /train-types resource.
type Trains struct {
	client Doer
	cache  *cache.Cache
}

// NewTrains creates a train-type client. The cache may be nil.
func NewTrains(client Doer, c *cache.Cache) *Trains {
	return &Trains{client: client, cache: c}
}

// ListTypes returns the available train types.
func (t *Trains) ListTypes(ctx context.Context) ([]TrainType, error) {
	if t.cache != nil {
		if cached, ok := t.cache.Get(TrainTypesKey()); ok {
			if types, ok := cached.([]TrainType); ok {
				return types, nil
			}
		}
	}

	var types []TrainType
	err := t.client.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/train-types",
	}, &types)
	if err != nil {
		return nil, err
	}

	if t.cache != nil {
		t.cache.Set(TrainTypesKey(), types)
	}
	return types, nil
}
