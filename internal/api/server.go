package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"coinproxy/internal/market"
	"coinproxy/internal/models"
)

const minSearchLen = 2

// Coins is the cache layer the routes call into.
type Coins interface {
	SearchCoins(ctx context.Context, query string) ([]models.SearchHit, error)
	PopularCoins(ctx context.Context) []models.MarketRecord
	SearchLocalCoins(ctx context.Context, query string) []models.CoinSummary
	CoinDetails(ctx context.Context, id string) (market.DetailResult, error)
	IndexStats() (keys []string, count int)
}

var _ Coins = (*market.Service)(nil)

type Server struct {
	coins Coins
	log   *slog.Logger
}

// NewRouter wires the coin routes. allowedOrigins feeds the CORS middleware.
func NewRouter(coins Coins, allowedOrigins []string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{coins: coins, log: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(allowedOrigins))

	r.Get("/healthz", s.health)
	r.Get("/debug/cache-size", s.cacheSize)

	r.Route("/api/coins", func(r chi.Router) {
		r.Get("/search", s.search)
		r.Get("/popular", s.popular)
		r.Get("/local-search", s.localSearch)
		r.Get("/{coinID}/details", s.details)
	})

	return r
}

// upstreamContext keeps request-scoped values but drops cancellation, so an
// upstream call that was issued runs to completion even if the client leaves.
func upstreamContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(q)) < minSearchLen {
		writeError(w, http.StatusUnprocessableEntity, "query parameter q must be at least 2 characters")
		return
	}

	hits, err := s.coins.SearchCoins(upstreamContext(r), q)
	if err != nil {
		s.log.Error("search failed", slog.String("q", q), slog.Any("err", err))
		writeError(w, http.StatusBadGateway, "upstream search failed")
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (s *Server) popular(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coins.PopularCoins(upstreamContext(r)))
}

func (s *Server) localSearch(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("q") {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	writeJSON(w, http.StatusOK, s.coins.SearchLocalCoins(upstreamContext(r), r.URL.Query().Get("q")))
}

func (s *Server) details(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "coinID")

	res, err := s.coins.CoinDetails(upstreamContext(r), id)
	if err != nil {
		s.log.Error("coin details failed", slog.String("coin", id), slog.Any("err", err))
		writeError(w, http.StatusBadGateway, "upstream coin details failed")
		return
	}
	if res.NotFound {
		writeError(w, http.StatusNotFound, "Coin not found or failed to fetch: "+res.ID)
		return
	}
	writeJSON(w, http.StatusOK, res.Coin)
}

func (s *Server) cacheSize(w http.ResponseWriter, _ *http.Request) {
	keys, count := s.coins.IndexStats()
	writeJSON(w, http.StatusOK, struct {
		CacheKeys []string `json:"cache_keys"`
		Count     int      `json:"count"`
	}{CacheKeys: keys, Count: count})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("took", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// cors allows the listed browser origins, with credentials.
func cors(allowed []string) func(http.Handler) http.Handler {
	origins := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		origins[strings.TrimRight(o, "/")] = struct{}{}
	}
	_, wildcard := origins["*"]

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if _, ok := origins[origin]; ok || wildcard {
					h := w.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Credentials", "true")
					h.Add("Vary", "Origin")
					if r.Method == http.MethodOptions {
						h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
						if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
							h.Set("Access-Control-Allow-Headers", req)
						}
						w.WriteHeader(http.StatusNoContent)
						return
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
