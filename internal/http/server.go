// Package http exposes the reward engine over a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"cardrewards/internal/cache"
	"cardrewards/internal/middleware/ratelimit"
	"cardrewards/internal/middleware/security"
	"cardrewards/internal/middleware/trace"
	"cardrewards/internal/rewards"
	"cardrewards/internal/services"
)

const (
	defaultCacheSize = 512
	defaultCacheTTL  = 5 * time.Minute

	readTimeout  = 10 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second

	// computeTimeout bounds a single reward computation behind a handler.
	computeTimeout = 7 * time.Second
)

// Options configures the server. Zero values fall back to defaults.
type Options struct {
	Addr      string
	CacheSize int
	CacheTTL  time.Duration
}

// Server serves the reward API. Computation endpoints are cached per
// spending vector since the catalog is immutable for the process lifetime.
type Server struct {
	httpServer *http.Server

	rewardSvc   *services.RewardService
	spendingSvc *services.SpendingService

	limiter  *ratelimit.Limiter
	detector *security.Detector

	cardCache  *cache.LRUCache[rewards.CardRewardResult]
	rankCache  *cache.LRUCache[[]rewards.CardRewardResult]
	comboCache *cache.LRUCache[rewards.CombinationResult]
	caches     *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires the API routes and middleware chain. The spending service
// may be nil when the server runs compute-only, without persistence.
func NewServer(opts Options, rewardSvc *services.RewardService, spendingSvc *services.SpendingService) *Server {
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}

	s := &Server{
		rewardSvc:   rewardSvc,
		spendingSvc: spendingSvc,
		limiter:     ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:    security.NewDetector(),
		cardCache:   cache.NewLRUCache[rewards.CardRewardResult](opts.CacheSize, opts.CacheTTL),
		rankCache:   cache.NewLRUCache[[]rewards.CardRewardResult](opts.CacheSize, opts.CacheTTL),
		comboCache:  cache.NewLRUCache[rewards.CombinationResult](opts.CacheSize, opts.CacheTTL),
		caches:      cache.NewManager(),
	}

	s.caches.Register(s.cardCache)
	s.caches.Register(s.rankCache)
	s.caches.Register(s.comboCache)
	s.caches.StartCleanup(opts.CacheTTL)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/cards", s.handleListCards)
	mux.HandleFunc("POST /api/rewards/card", s.handleCardReward)
	mux.HandleFunc("POST /api/rewards/rank", s.handleRankCards)
	mux.HandleFunc("POST /api/rewards/combination", s.handleCombination)
	mux.HandleFunc("POST /api/spending", s.handleCreateSpending)
	mux.HandleFunc("GET /api/spending/{id}", s.handleGetSpending)
	mux.HandleFunc("GET /api/spending/{id}/recommendation", s.handleGetRecommendation)

	tracer := trace.NewMiddleware(s.detector.ExtractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	handler := tracer.Middleware(headers.Middleware(s.guard(mux)))

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

// guard rejects suspicious requests and rate-limits mutating methods.
// Read-only endpoints stay unthrottled so dashboards can poll freely.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request blocked",
				"client_ip", s.detector.ExtractClientIP(r),
				"method", r.Method, "url", r.URL.Path)
			writeError(w, http.StatusForbidden, "request rejected")
			return
		}

		if r.Method == http.MethodPost {
			clientIP := s.detector.ExtractClientIP(r)
			if !s.limiter.Allow(clientIP) {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// Handler returns the full middleware-wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, the rate limiter cleanup goroutine
// and the cache manager. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the catalog is loaded. Card lookup is
// in-memory, so a non-empty catalog means the engine can answer.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.rewardSvc == nil || s.rewardSvc.Catalog().Len() == 0 {
		writeError(w, http.StatusServiceUnavailable, "catalog not loaded")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
