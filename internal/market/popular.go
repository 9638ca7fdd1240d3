package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coinproxy/internal/cache"
	"coinproxy/internal/coingecko"
	"coinproxy/internal/models"
)

const (
	DefaultRankTTL       = 24 * time.Hour
	DefaultMarketDataTTL = 5 * time.Minute
	DefaultTopN          = 6
	DefaultRankFetchSize = 50

	rankKey = "rank"
	dataKey = "data"
)

// DefaultExcludedIDs are stablecoins kept out of the popular ranking.
var DefaultExcludedIDs = []string{"tether", "usd-coin", "binance-usd"}

var errNoRanking = errors.New("no ranking to fetch market data for")

type PopularConfig struct {
	RankTTL       time.Duration
	MarketDataTTL time.Duration
	TopN          int
	RankFetchSize int
	ExcludedIDs   []string
}

func DefaultPopularConfig() PopularConfig {
	return PopularConfig{
		RankTTL:       DefaultRankTTL,
		MarketDataTTL: DefaultMarketDataTTL,
		TopN:          DefaultTopN,
		RankFetchSize: DefaultRankFetchSize,
		ExcludedIDs:   DefaultExcludedIDs,
	}
}

// PopularCache composes a slow ranking list with fast market data.
//
// The ranking decides which coins are popular and in what order; the market
// data supplies what is returned. A ranked coin without market data is left
// out of the result. Failed refreshes of either part keep serving the
// previous value.
type PopularCache struct {
	upstream Upstream
	ranks    *cache.Store[[]models.MarketRecord]
	data     *cache.Store[map[string]models.MarketRecord]
	cfg      PopularConfig
	excluded map[string]struct{}
	now      cache.Clock
	log      *slog.Logger
}

func NewPopularCache(upstream Upstream, cfg PopularConfig, clock cache.Clock, logger *slog.Logger) *PopularCache {
	def := DefaultPopularConfig()
	if cfg.RankTTL <= 0 {
		cfg.RankTTL = def.RankTTL
	}
	if cfg.MarketDataTTL <= 0 {
		cfg.MarketDataTTL = def.MarketDataTTL
	}
	if cfg.TopN <= 0 {
		cfg.TopN = def.TopN
	}
	if cfg.RankFetchSize <= 0 {
		cfg.RankFetchSize = def.RankFetchSize
	}
	if cfg.ExcludedIDs == nil {
		cfg.ExcludedIDs = def.ExcludedIDs
	}

	excluded := make(map[string]struct{}, len(cfg.ExcludedIDs))
	for _, id := range cfg.ExcludedIDs {
		excluded[Normalize(id)] = struct{}{}
	}

	return &PopularCache{
		upstream: upstream,
		ranks:    cache.NewStore[[]models.MarketRecord](),
		data:     cache.NewStore[map[string]models.MarketRecord](),
		cfg:      cfg,
		excluded: excluded,
		now:      clockOrSystem(clock),
		log:      loggerOrDefault(logger),
	}
}

// Popular returns the ranked coins that have market data, in ranking order.
// It never fails; at worst the result is stale or empty.
func (p *PopularCache) Popular(ctx context.Context) []models.MarketRecord {
	ranking := p.ranking(ctx)
	data := p.marketData(ctx, ranking)
	return merge(ranking, data)
}

func (p *PopularCache) ranking(ctx context.Context) []models.MarketRecord {
	now := p.now()
	if ranking, ok := p.ranks.Fresh(rankKey, now, p.cfg.RankTTL); ok {
		return ranking
	}

	ranking, err := p.fetchRanking(ctx)
	if err != nil {
		p.log.Warn("popular ranking refresh failed, serving previous", slog.Any("err", err))
		prev, _ := p.ranks.Get(rankKey)
		return prev.Value
	}

	p.ranks.Put(rankKey, ranking, p.now())
	return ranking
}

func (p *PopularCache) fetchRanking(ctx context.Context) ([]models.MarketRecord, error) {
	records, err := p.upstream.MarketsPage(ctx, 1, p.cfg.RankFetchSize, coingecko.OrderMarketCapDesc)
	if err != nil {
		return nil, fmt.Errorf("fetch ranking: %w", err)
	}

	ranking := make([]models.MarketRecord, 0, p.cfg.TopN)
	for _, r := range records {
		if _, skip := p.excluded[Normalize(r.ID)]; skip {
			continue
		}
		ranking = append(ranking, r)
		if len(ranking) == p.cfg.TopN {
			break
		}
	}
	return ranking, nil
}

func (p *PopularCache) marketData(ctx context.Context, ranking []models.MarketRecord) map[string]models.MarketRecord {
	now := p.now()
	if data, ok := p.data.Fresh(dataKey, now, p.cfg.MarketDataTTL); ok {
		return data
	}

	data, err := p.fetchMarketData(ctx, ranking)
	if err != nil {
		if !errors.Is(err, errNoRanking) {
			p.log.Warn("popular market data refresh failed, serving previous", slog.Any("err", err))
		}
		prev, _ := p.data.Get(dataKey)
		return prev.Value
	}

	p.data.Put(dataKey, data, p.now())
	return data
}

func (p *PopularCache) fetchMarketData(ctx context.Context, ranking []models.MarketRecord) (map[string]models.MarketRecord, error) {
	if len(ranking) == 0 {
		return nil, errNoRanking
	}

	ids := make([]string, 0, len(ranking))
	for _, r := range ranking {
		ids = append(ids, r.ID)
	}

	records, err := p.upstream.MarketsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch market data: %w", err)
	}

	data := make(map[string]models.MarketRecord, len(records))
	for _, r := range records {
		data[r.ID] = r
	}
	return data, nil
}

func merge(ranking []models.MarketRecord, data map[string]models.MarketRecord) []models.MarketRecord {
	merged := make([]models.MarketRecord, 0, len(ranking))
	for _, r := range ranking {
		if fresh, ok := data[r.ID]; ok {
			merged = append(merged, fresh)
		}
	}
	return merged
}
