package market

import (
	"context"
	"log/slog"
	"time"

	"coinproxy/internal/cache"
	"coinproxy/internal/models"
)

type Config struct {
	SearchTTL  time.Duration
	IndexTTL   time.Duration
	IndexPages int
	DetailsTTL time.Duration
	Popular    PopularConfig
}

func DefaultConfig() Config {
	return Config{
		SearchTTL:  DefaultSearchTTL,
		IndexTTL:   DefaultIndexTTL,
		IndexPages: DefaultIndexPages,
		DetailsTTL: DefaultDetailsTTL,
		Popular:    DefaultPopularConfig(),
	}
}

// Service bundles the coin caches behind the operations the request handlers
// call. Each operation is served by exactly one cache.
type Service struct {
	search  *SearchCache
	index   *LocalIndex
	popular *PopularCache
	details *DetailsCache
	log     *slog.Logger
}

// NewService builds every cache on top of one upstream client. A nil clock
// means the wall clock; a nil logger means slog.Default.
func NewService(upstream Upstream, cfg Config, clock cache.Clock, logger *slog.Logger) *Service {
	logger = loggerOrDefault(logger)
	def := DefaultConfig()
	if cfg.SearchTTL <= 0 {
		cfg.SearchTTL = def.SearchTTL
	}
	if cfg.IndexTTL <= 0 {
		cfg.IndexTTL = def.IndexTTL
	}
	if cfg.DetailsTTL <= 0 {
		cfg.DetailsTTL = def.DetailsTTL
	}

	return &Service{
		search:  NewSearchCache(upstream, cfg.SearchTTL, clock),
		index:   NewLocalIndex(upstream, cfg.IndexPages, cfg.IndexTTL, clock, logger.With(slog.String("cache", "local_index"))),
		popular: NewPopularCache(upstream, cfg.Popular, clock, logger.With(slog.String("cache", "popular"))),
		details: NewDetailsCache(upstream, cfg.DetailsTTL, clock),
		log:     logger,
	}
}

func (s *Service) SearchCoins(ctx context.Context, query string) ([]models.SearchHit, error) {
	return s.search.Search(ctx, query)
}

func (s *Service) PopularCoins(ctx context.Context) []models.MarketRecord {
	return s.popular.Popular(ctx)
}

func (s *Service) SearchLocalCoins(ctx context.Context, query string) []models.CoinSummary {
	return s.index.Search(ctx, query)
}

func (s *Service) CoinDetails(ctx context.Context, id string) (DetailResult, error) {
	return s.details.Details(ctx, id)
}

// IndexStats reports the local index store keys and coin count.
func (s *Service) IndexStats() (keys []string, count int) {
	return s.index.Keys(), s.index.Count()
}

// Warm populates the local index and popular caches ahead of traffic.
func (s *Service) Warm(ctx context.Context) {
	start := time.Now()
	s.log.Info("warming caches")

	coins := s.index.Coins(ctx)
	popular := s.popular.Popular(ctx)

	s.log.Info("caches ready",
		slog.Int("index_coins", len(coins)),
		slog.Int("popular_coins", len(popular)),
		slog.Duration("took", time.Since(start)))
}
