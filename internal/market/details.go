package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coinproxy/internal/cache"
	"coinproxy/internal/coingecko"
	"coinproxy/internal/models"
)

const DefaultDetailsTTL = 5 * time.Minute

// DetailResult is either a coin's detail record or a not-found marker.
type DetailResult struct {
	ID       string
	Coin     models.CoinDetail
	NotFound bool
}

// DetailsCache caches coin detail records by normalized id. Lookups that
// upstream rejects are never cached.
type DetailsCache struct {
	upstream Upstream
	store    *cache.Store[models.CoinDetail]
	ttl      time.Duration
	now      cache.Clock
}

func NewDetailsCache(upstream Upstream, ttl time.Duration, clock cache.Clock) *DetailsCache {
	return &DetailsCache{
		upstream: upstream,
		store:    cache.NewStore[models.CoinDetail](),
		ttl:      ttl,
		now:      clockOrSystem(clock),
	}
}

// Details returns the detail record for id. Any non-success upstream status
// yields NotFound; transport failures are returned as errors.
func (c *DetailsCache) Details(ctx context.Context, id string) (DetailResult, error) {
	key := Normalize(id)

	if coin, ok := c.store.Fresh(key, c.now(), c.ttl); ok {
		return DetailResult{ID: key, Coin: coin}, nil
	}

	coin, err := c.upstream.CoinDetail(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, coingecko.ErrNotFound), coingecko.IsStatus(err):
		return DetailResult{ID: key, NotFound: true}, nil
	default:
		return DetailResult{ID: key}, fmt.Errorf("coin details %q: %w", key, err)
	}

	c.store.Put(key, coin, c.now())
	return DetailResult{ID: key, Coin: coin}, nil
}
