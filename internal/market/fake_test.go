package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"coinproxy/internal/coingecko"
	"coinproxy/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeUpstream serves canned responses and counts calls per operation.
type fakeUpstream struct {
	mu sync.Mutex

	searchHits []models.SearchHit
	searchErr  error

	pages     map[int][]models.MarketRecord
	pageErrs  map[int]error
	pageCalls []int

	byIDs     []models.MarketRecord
	byIDsErr  error
	byIDsArgs [][]string

	details    map[string]models.CoinDetail
	detailErr  error
	detailArgs []string

	calls map[string]int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		pages:    make(map[int][]models.MarketRecord),
		pageErrs: make(map[int]error),
		details:  make(map[string]models.CoinDetail),
		calls:    make(map[string]int),
	}
}

func (f *fakeUpstream) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeUpstream) Search(_ context.Context, query string) ([]models.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["search"]++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchHits, nil
}

func (f *fakeUpstream) MarketsPage(_ context.Context, page, _ int, _ string) ([]models.MarketRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["markets_page"]++
	f.pageCalls = append(f.pageCalls, page)
	if err := f.pageErrs[page]; err != nil {
		return nil, err
	}
	return f.pages[page], nil
}

func (f *fakeUpstream) MarketsByIDs(_ context.Context, ids []string) ([]models.MarketRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["markets_by_ids"]++
	f.byIDsArgs = append(f.byIDsArgs, append([]string(nil), ids...))
	if f.byIDsErr != nil {
		return nil, f.byIDsErr
	}
	return f.byIDs, nil
}

func (f *fakeUpstream) CoinDetail(_ context.Context, id string) (models.CoinDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["coin_detail"]++
	f.detailArgs = append(f.detailArgs, id)
	if f.detailErr != nil {
		return models.CoinDetail{}, f.detailErr
	}
	d, ok := f.details[id]
	if !ok {
		return models.CoinDetail{}, &coingecko.StatusError{Op: "coin_detail", StatusCode: 404}
	}
	return d, nil
}

func market(id, name, symbol string) models.MarketRecord {
	var r models.MarketRecord
	raw := fmt.Sprintf(`{"id":%q,"name":%q,"symbol":%q,"image":"https://img/%s.png","current_price":1.5}`, id, name, symbol, id)
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		panic(err)
	}
	return r
}

func marketIDs(ids ...string) []models.MarketRecord {
	out := make([]models.MarketRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, market(id, id, id))
	}
	return out
}

func hit(id string) models.SearchHit {
	var h models.SearchHit
	if err := json.Unmarshal([]byte(fmt.Sprintf(`{"id":%q}`, id)), &h); err != nil {
		panic(err)
	}
	return h
}

func detail(id string) models.CoinDetail {
	var d models.CoinDetail
	if err := json.Unmarshal([]byte(fmt.Sprintf(`{"id":%q,"market_data":{"current_price":{"usd":10}}}`, id)), &d); err != nil {
		panic(err)
	}
	return d
}

func ids[T interface{ models.MarketRecord | models.CoinSummary }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := any(it).(type) {
		case models.MarketRecord:
			out = append(out, v.ID)
		case models.CoinSummary:
			out = append(out, v.ID)
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
