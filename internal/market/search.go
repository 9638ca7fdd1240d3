package market

import (
	"context"
	"fmt"
	"time"

	"coinproxy/internal/cache"
	"coinproxy/internal/models"
)

const (
	DefaultSearchTTL = time.Hour
	searchLimit      = 10
)

// SearchCache answers remote name searches, keyed by normalized query.
// Concurrent misses on the same query each hit upstream.
type SearchCache struct {
	upstream Upstream
	store    *cache.Store[[]models.SearchHit]
	ttl      time.Duration
	now      cache.Clock
}

func NewSearchCache(upstream Upstream, ttl time.Duration, clock cache.Clock) *SearchCache {
	return &SearchCache{
		upstream: upstream,
		store:    cache.NewStore[[]models.SearchHit](),
		ttl:      ttl,
		now:      clockOrSystem(clock),
	}
}

// Search returns at most 10 upstream matches for query. Upstream failures are
// returned to the caller and leave the cache untouched.
func (c *SearchCache) Search(ctx context.Context, query string) ([]models.SearchHit, error) {
	key := Normalize(query)

	if hits, ok := c.store.Fresh(key, c.now(), c.ttl); ok {
		return hits, nil
	}

	hits, err := c.upstream.Search(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", key, err)
	}
	if len(hits) > searchLimit {
		hits = hits[:searchLimit]
	}
	if hits == nil {
		hits = []models.SearchHit{}
	}

	c.store.Put(key, hits, c.now())
	return hits, nil
}
