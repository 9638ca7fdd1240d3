package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(WithBaseURL(srv.URL+"/"), WithAPIKey("demo-key"))
}

func TestClientSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("query"))
		assert.Equal(t, "demo-key", r.Header.Get(apiKeyHeader))
		assert.Equal(t, DefaultUserAgent(), r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"coins":[{"id":"bitcoin","name":"Bitcoin","thumb":"t.png"},{"id":"wrapped-bitcoin"}],"exchanges":[]}`))
	})

	hits, err := client.Search(context.Background(), "bitcoin")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "bitcoin", hits[0].ID)

	out, err := json.Marshal(hits[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"bitcoin","name":"Bitcoin","thumb":"t.png"}`, string(out))
}

func TestClientMarketsPage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "usd", q.Get("vs_currency"))
		assert.Equal(t, OrderMarketCapDesc, q.Get("order"))
		assert.Equal(t, "250", q.Get("per_page"))
		assert.Equal(t, "3", q.Get("page"))
		assert.Equal(t, "false", q.Get("sparkline"))
		_, _ = w.Write([]byte(`[{"id":"bitcoin","name":"Bitcoin","symbol":"btc","image":"b.png","current_price":1}]`))
	})

	records, err := client.MarketsPage(context.Background(), 3, 250, OrderMarketCapDesc)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "btc", records[0].Symbol)
	assert.Equal(t, "b.png", records[0].Summary().Thumb)
}

func TestClientMarketsByIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "bitcoin,ethereum", q.Get("ids"))
		assert.Equal(t, "true", q.Get("sparkline"))
		assert.Equal(t, "24h", q.Get("price_change_percentage"))
		_, _ = w.Write([]byte(`[{"id":"bitcoin"},{"id":"ethereum"}]`))
	})

	records, err := client.MarketsByIDs(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestClientCoinDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/coins/nope" {
			http.Error(w, `{"error":"coin not found"}`, http.StatusNotFound)
			return
		}
		assert.Equal(t, "/coins/bitcoin", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("localization"))
		assert.Equal(t, "true", r.URL.Query().Get("sparkline"))
		_, _ = w.Write([]byte(`{"id":"bitcoin","market_data":{"current_price":{"usd":42}}}`))
	})

	detail, err := client.CoinDetail(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", detail.ID)

	view, err := detail.DetailView()
	require.NoError(t, err)
	assert.InDelta(t, 42.0, view.MarketData.Price.USD, 0.0001)

	_, err = client.CoinDetail(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsStatus(err))
}

func TestClientStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	})

	_, err := client.Search(context.Background(), "eth")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, "search", se.Op)
	assert.Equal(t, "slow down", se.Body)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestClientTransportErrors(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		client := NewClient(WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
		_, err := client.MarketsPage(context.Background(), 1, 10, OrderMarketCapDesc)

		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "markets_page", te.Op)
	})

	t.Run("bad body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		})
		_, err := client.MarketsByIDs(context.Background(), []string{"bitcoin"})

		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.False(t, IsStatus(err))
	})
}
