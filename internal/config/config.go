package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"coinproxy/internal/coingecko"
	"coinproxy/internal/market"
)

type Config struct {
	Addr            string
	CoinGeckoURL    string
	CoinGeckoAPIKey string
	HTTPTimeout     time.Duration
	CORSOrigins     []string
	WarmOnStart     bool
	TelegramToken   string
	LogLevel        slog.Level

	Market market.Config
}

// Load reads envFile (if it exists) into the process environment and builds
// the configuration from it. Variables already set in the environment win.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds the configuration from a variable lookup function.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	r := reader{lookup: lookup}

	cfg := Config{
		Addr:            r.addr(),
		CoinGeckoURL:    r.str("COINGECKO_BASE_URL", coingecko.DefaultBaseURL),
		CoinGeckoAPIKey: r.str("COINGECKO_API_KEY", ""),
		HTTPTimeout:     r.duration("HTTP_TIMEOUT", coingecko.DefaultTimeout),
		CORSOrigins:     r.list("CORS_ORIGINS", []string{"http://localhost:5173"}),
		WarmOnStart:     r.boolean("WARM_ON_START", true),
		TelegramToken:   r.str("TELEGRAM_BOT_TOKEN", ""),
		LogLevel:        r.level("LOG_LEVEL", slog.LevelInfo),
		Market: market.Config{
			SearchTTL:  r.duration("SEARCH_TTL", market.DefaultSearchTTL),
			IndexTTL:   r.duration("INDEX_TTL", market.DefaultIndexTTL),
			IndexPages: r.integer("INDEX_PAGES", market.DefaultIndexPages),
			DetailsTTL: r.duration("DETAILS_TTL", market.DefaultDetailsTTL),
			Popular: market.PopularConfig{
				RankTTL:       r.duration("RANK_TTL", market.DefaultRankTTL),
				MarketDataTTL: r.duration("MARKET_DATA_TTL", market.DefaultMarketDataTTL),
				TopN:          r.integer("POPULAR_TOP_N", market.DefaultTopN),
				RankFetchSize: r.integer("POPULAR_FETCH_SIZE", market.DefaultRankFetchSize),
				ExcludedIDs:   r.list("POPULAR_EXCLUDED_IDS", market.DefaultExcludedIDs),
			},
		},
	}

	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	if cfg.Market.IndexPages < 1 {
		return Config{}, fmt.Errorf("INDEX_PAGES must be at least 1, got %d", cfg.Market.IndexPages)
	}
	if n := cfg.Market.Popular.TopN; n < 1 || n > cfg.Market.Popular.RankFetchSize {
		return Config{}, fmt.Errorf("POPULAR_TOP_N must be between 1 and POPULAR_FETCH_SIZE (%d), got %d", cfg.Market.Popular.RankFetchSize, n)
	}
	return cfg, nil
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) raw(key string) (string, bool) {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *reader) str(key, def string) string {
	if v, ok := r.raw(key); ok {
		return v
	}
	return def
}

// addr prefers ADDR and falls back to PORT, as most hosting platforms set.
func (r *reader) addr() string {
	if v, ok := r.raw("ADDR"); ok {
		return v
	}
	if v, ok := r.raw("PORT"); ok {
		return ":" + v
	}
	return ":8000"
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	if d <= 0 {
		r.errs = append(r.errs, fmt.Errorf("%s: must be positive, got %s", key, v))
		return def
	}
	return d
}

func (r *reader) integer(key string, def int) int {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) boolean(key string, def bool) bool {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (r *reader) list(key string, def []string) []string {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *reader) level(key string, def slog.Level) slog.Level {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return lvl
}
