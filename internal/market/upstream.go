package market

import (
	"context"
	"log/slog"
	"strings"

	"coinproxy/internal/cache"
	"coinproxy/internal/coingecko"
	"coinproxy/internal/models"
)

// Upstream is the market-data provider the caches refresh from.
type Upstream interface {
	Search(ctx context.Context, query string) ([]models.SearchHit, error)
	MarketsPage(ctx context.Context, page, perPage int, order string) ([]models.MarketRecord, error)
	MarketsByIDs(ctx context.Context, ids []string) ([]models.MarketRecord, error)
	CoinDetail(ctx context.Context, id string) (models.CoinDetail, error)
}

var _ Upstream = (*coingecko.Client)(nil)

// Normalize turns user query text or a coin id into a cache key.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clockOrSystem(c cache.Clock) cache.Clock {
	if c == nil {
		return cache.SystemClock
	}
	return c
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
