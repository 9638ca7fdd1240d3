package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinproxy/internal/models"
)

func TestServiceWarmAndServe(t *testing.T) {
	up := newFakeUpstream()
	up.pages[1] = []models.MarketRecord{
		market("tether", "Tether", "usdt"),
		market("bitcoin", "Bitcoin", "btc"),
		market("ethereum", "Ethereum", "eth"),
	}
	up.byIDs = marketIDs("bitcoin", "ethereum")
	up.details["ethereum"] = detail("ethereum")
	up.searchHits = marketHits("ethereum")

	cfg := DefaultConfig()
	cfg.IndexPages = 1
	svc := NewService(up, cfg, newFakeClock().Now, discardLogger())

	svc.Warm(context.Background())
	warmCalls := up.count("markets_page")

	keys, count := svc.IndexStats()
	assert.Equal(t, []string{"coins"}, keys)
	assert.Equal(t, 3, count)

	assert.Equal(t, []string{"bitcoin", "ethereum"}, ids(svc.PopularCoins(context.Background())))
	assert.Equal(t, []string{"tether"}, ids(svc.SearchLocalCoins(context.Background(), "USDT")))
	assert.Equal(t, warmCalls, up.count("markets_page"), "warm caches serve without upstream calls")

	hits, err := svc.SearchCoins(context.Background(), "eth")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	res, err := svc.CoinDetails(context.Background(), "Ethereum")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", res.Coin.ID)
}

func marketHits(ids ...string) []models.SearchHit {
	out := make([]models.SearchHit, 0, len(ids))
	for _, id := range ids {
		out = append(out, hit(id))
	}
	return out
}
