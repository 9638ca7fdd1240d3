package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketRecordPassesThroughUnknownFields(t *testing.T) {
	in := `{"id":"bitcoin","name":"Bitcoin","symbol":"btc","image":"https://img/btc.png","current_price":65000,"sparkline_in_7d":{"price":[1,2,3]},"roi":null}`

	var records []MarketRecord
	require.NoError(t, json.Unmarshal([]byte("["+in+"]"), &records))
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, CoinSummary{ID: "bitcoin", Name: "Bitcoin", Symbol: "btc", Thumb: "https://img/btc.png"}, r.Summary())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))

	q, err := r.Quote()
	require.NoError(t, err)
	assert.InDelta(t, 65000.0, q.Price, 0.001)
	assert.Nil(t, q.PriceChangePercentage24h)
}

func TestRecordsWithoutPayload(t *testing.T) {
	out, err := json.Marshal(MarketRecord{ID: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"x","name":"","symbol":"","image":""}`, string(out))

	_, err = MarketRecord{ID: "x"}.Quote()
	assert.Error(t, err)

	_, err = CoinDetail{ID: "x"}.DetailView()
	assert.Error(t, err)
}
