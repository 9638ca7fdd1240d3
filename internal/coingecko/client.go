package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"coinproxy/internal/models"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	DefaultTimeout = 10 * time.Second

	OrderMarketCapDesc = "market_cap_desc"

	apiKeyHeader = "x-cg-demo-api-key"
	maxErrorBody = 512
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type Option func(*Client)

// WithBaseURL points the client at another CoinGecko-compatible host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient = SharedHTTPClient(timeout)
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: SharedHTTPClient(DefaultTimeout),
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SharedHTTPClient returns an HTTP client with pooled connections and a
// bounded request timeout.
func SharedHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func DefaultUserAgent() string {
	return "coinproxy/1.0"
}

// Search queries /search and returns the coin matches in upstream order.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchHit, error) {
	params := url.Values{}
	params.Set("query", query)

	var resp struct {
		Coins []models.SearchHit `json:"coins"`
	}
	if err := c.get(ctx, "search", "/search", params, &resp); err != nil {
		return nil, err
	}
	return resp.Coins, nil
}

// MarketsPage fetches one page of /coins/markets in USD without sparklines.
func (c *Client) MarketsPage(ctx context.Context, page, perPage int, order string) ([]models.MarketRecord, error) {
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("order", order)
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))
	params.Set("sparkline", "false")

	var records []models.MarketRecord
	if err := c.get(ctx, "markets_page", "/coins/markets", params, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// MarketsByIDs fetches market data for exactly the given ids, including the
// 7d sparkline and the 24h price change.
func (c *Client) MarketsByIDs(ctx context.Context, ids []string) ([]models.MarketRecord, error) {
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("ids", strings.Join(ids, ","))
	params.Set("sparkline", "true")
	params.Set("price_change_percentage", "24h")

	var records []models.MarketRecord
	if err := c.get(ctx, "markets_by_ids", "/coins/markets", params, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CoinDetail fetches /coins/{id}. A 404 matches ErrNotFound.
func (c *Client) CoinDetail(ctx context.Context, id string) (models.CoinDetail, error) {
	params := url.Values{}
	params.Set("localization", "false")
	params.Set("sparkline", "true")

	var detail models.CoinDetail
	if err := c.get(ctx, "coin_detail", "/coins/"+url.PathEscape(id), params, &detail); err != nil {
		return models.CoinDetail{}, err
	}
	return detail, nil
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", DefaultUserAgent())
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
