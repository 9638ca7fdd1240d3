package market

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"coinproxy/internal/cache"
	"coinproxy/internal/coingecko"
	"coinproxy/internal/models"
)

const (
	DefaultIndexTTL   = 24 * time.Hour
	DefaultIndexPages = 4
	IndexPageSize     = 250

	indexKey         = "coins"
	localSearchLimit = 10
)

// LocalIndex keeps a snapshot of the top coins by market cap and answers
// substring searches against it without further upstream calls.
type LocalIndex struct {
	upstream Upstream
	store    *cache.Store[[]models.CoinSummary]
	pages    int
	ttl      time.Duration
	now      cache.Clock
	log      *slog.Logger
}

func NewLocalIndex(upstream Upstream, pages int, ttl time.Duration, clock cache.Clock, logger *slog.Logger) *LocalIndex {
	if pages <= 0 {
		pages = DefaultIndexPages
	}
	return &LocalIndex{
		upstream: upstream,
		store:    cache.NewStore[[]models.CoinSummary](),
		pages:    pages,
		ttl:      ttl,
		now:      clockOrSystem(clock),
		log:      loggerOrDefault(logger),
	}
}

// Coins returns the cached index, rebuilding it when missing or stale.
// It never fails: pages that could not be fetched are simply absent.
func (x *LocalIndex) Coins(ctx context.Context) []models.CoinSummary {
	if coins, ok := x.store.Fresh(indexKey, x.now(), x.ttl); ok {
		return coins
	}

	coins := x.fetchAll(ctx)
	x.store.Put(indexKey, coins, x.now())
	x.log.Info("local index refreshed", slog.Int("coins", len(coins)), slog.Int("pages", x.pages))
	return coins
}

// fetchAll fetches every page concurrently and joins them in page order.
func (x *LocalIndex) fetchAll(ctx context.Context) []models.CoinSummary {
	pages := make([][]models.CoinSummary, x.pages)

	var g errgroup.Group
	for i := range pages {
		page := i + 1
		g.Go(func() error {
			records, err := x.upstream.MarketsPage(ctx, page, IndexPageSize, coingecko.OrderMarketCapDesc)
			if err != nil {
				x.log.Warn("local index page failed", slog.Int("page", page), slog.Any("err", err))
				return nil
			}
			summaries := make([]models.CoinSummary, 0, len(records))
			for _, r := range records {
				summaries = append(summaries, r.Summary())
			}
			pages[page-1] = summaries
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, p := range pages {
		total += len(p)
	}
	coins := make([]models.CoinSummary, 0, total)
	for _, p := range pages {
		coins = append(coins, p...)
	}
	return coins
}

// Search returns up to 10 indexed coins whose name or symbol contains query,
// case-insensitively, in index order.
func (x *LocalIndex) Search(ctx context.Context, query string) []models.CoinSummary {
	coins := x.Coins(ctx)
	q := Normalize(query)

	matches := make([]models.CoinSummary, 0, localSearchLimit)
	for _, c := range coins {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Symbol), q) {
			matches = append(matches, c)
			if len(matches) == localSearchLimit {
				break
			}
		}
	}
	return matches
}

// Keys lists the index store keys for diagnostics.
func (x *LocalIndex) Keys() []string {
	return x.store.Keys()
}

// Count is the number of coins in the stored index, fresh or not.
func (x *LocalIndex) Count() int {
	e, ok := x.store.Get(indexKey)
	if !ok {
		return 0
	}
	return len(e.Value)
}
