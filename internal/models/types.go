package models

import (
	"encoding/json"
	"errors"
)

// CoinSummary is the minimal projection served by the local coin index.
type CoinSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Thumb  string `json:"thumb"`
}

// MarketRecord is one element of the CoinGecko /coins/markets response.
// The raw upstream JSON is kept and written back unmodified; only the fields
// the caches key on are decoded.
type MarketRecord struct {
	ID     string
	Name   string
	Symbol string
	Image  string

	raw json.RawMessage
}

func (r *MarketRecord) UnmarshalJSON(data []byte) error {
	var fields struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
		Image  string `json:"image"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	r.ID = fields.ID
	r.Name = fields.Name
	r.Symbol = fields.Symbol
	r.Image = fields.Image
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (r MarketRecord) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	return json.Marshal(map[string]string{
		"id":     r.ID,
		"name":   r.Name,
		"symbol": r.Symbol,
		"image":  r.Image,
	})
}

// Summary projects the record onto a CoinSummary.
func (r MarketRecord) Summary() CoinSummary {
	return CoinSummary{
		ID:     r.ID,
		Name:   r.Name,
		Symbol: r.Symbol,
		Thumb:  r.Image,
	}
}

// Quote decodes the price fields the chat front-end renders.
func (r MarketRecord) Quote() (MarketQuote, error) {
	var q MarketQuote
	if len(r.raw) == 0 {
		return q, errors.New("market record has no payload")
	}
	err := json.Unmarshal(r.raw, &q)
	return q, err
}

// MarketQuote is the typed view of a market record's price data.
type MarketQuote struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	Price                    float64  `json:"current_price"`
	MarketCap                float64  `json:"market_cap"`
	MarketCapRank            int      `json:"market_cap_rank"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
	Volume24h                float64  `json:"total_volume"`
}

// SearchHit is one element of the CoinGecko /search "coins" array, passed
// through unmodified.
type SearchHit struct {
	ID string

	raw json.RawMessage
}

func (h *SearchHit) UnmarshalJSON(data []byte) error {
	var fields struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	h.ID = fields.ID
	h.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (h SearchHit) MarshalJSON() ([]byte, error) {
	if len(h.raw) > 0 {
		return h.raw, nil
	}
	return json.Marshal(map[string]string{"id": h.ID})
}

// CoinDetail is the body of CoinGecko /coins/{id}, passed through unmodified.
type CoinDetail struct {
	ID string

	raw json.RawMessage
}

func (d *CoinDetail) UnmarshalJSON(data []byte) error {
	var fields struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	d.ID = fields.ID
	d.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (d CoinDetail) MarshalJSON() ([]byte, error) {
	if len(d.raw) > 0 {
		return d.raw, nil
	}
	return json.Marshal(map[string]string{"id": d.ID})
}

// DetailView decodes the fields the chat front-end renders.
func (d CoinDetail) DetailView() (CoinDetailView, error) {
	var v CoinDetailView
	if len(d.raw) == 0 {
		return v, errors.New("coin detail has no payload")
	}
	err := json.Unmarshal(d.raw, &v)
	return v, err
}

type MultiCurrency struct {
	USD float64 `json:"usd"`
}

type CoinData struct {
	Price                    MultiCurrency `json:"current_price"`
	PriceChangePercentage24h float64       `json:"price_change_percentage_24h"`
	MarketCap                MultiCurrency `json:"market_cap"`
	FullyDilutedValuation    MultiCurrency `json:"fully_diluted_valuation"`
	Volume24h                MultiCurrency `json:"total_volume"`
}

// CoinDetailView is the typed subset of a coin detail body.
type CoinDetailView struct {
	ID            string   `json:"id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	MarketCapRank int      `json:"market_cap_rank"`
	MarketData    CoinData `json:"market_data"`
}
