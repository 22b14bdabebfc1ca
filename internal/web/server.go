// Package web provides the HTTP server that hands processed event records
// to the reporting dashboard.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/JonMunkholm/outreach/internal/config"
	"github.com/JonMunkholm/outreach/internal/metrics"
	"github.com/JonMunkholm/outreach/internal/pipeline"
	"github.com/JonMunkholm/outreach/internal/table"
	mw "github.com/JonMunkholm/outreach/internal/web/middleware"
)

// Publisher copies a processed table into the reporting database.
type Publisher interface {
	Publish(ctx context.Context, runID string, t *table.Table) (int64, error)
}

// Server is the HTTP server for the outreach pipeline.
type Server struct {
	cfg       *config.Config
	opts      config.Options
	publisher Publisher
	metrics   *metrics.Metrics
	limiter   *pipeline.Limiter
	router    *chi.Mux
	server    *http.Server

	rateLimiter *rateLimiter // nil when rate limiting is disabled
}

// NewServer creates a new Server instance. opts are the base pipeline
// options every request starts from. publisher may be nil, in which case
// the publish endpoint reports that publishing is disabled.
func NewServer(cfg *config.Config, opts config.Options, publisher Publisher, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.New()
	}
	s := &Server{
		cfg:       cfg,
		opts:      opts,
		publisher: publisher,
		metrics:   m,
		limiter:   pipeline.NewLimiter(cfg.Pipeline.MaxConcurrentRuns, cfg.Pipeline.RunWaitTimeout),
		router:    chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.rateLimiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Now)
		s.router.Use(s.rateLimiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/records", s.handleRecords)

		r.With(mw.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys)).
			Post("/publish", s.handlePublish)
	})
}

// Start begins listening for HTTP requests. It returns
// http.ErrServerClosed once Shutdown is called.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background work.
// It is safe to call from another goroutine while Start is running.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.close()
	}
	return s.server.Shutdown(ctx)
}

// Drain waits for in-flight pipeline runs to finish. Call it after
// Shutdown so no new runs start.
func (s *Server) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
// The server only speaks JSON, so the CSP forbids every resource type.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")

		next.ServeHTTP(w, r)
	})
}

// rateLimiter keeps one token bucket per client IP. Each bucket holds up
// to perMinute tokens and refills at perMinute per minute.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration // buckets unused this long are evicted
	now      func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newRateLimiter creates a limiter allowing perMinute requests per IP and
// starts its eviction loop. Call close to stop the loop.
func newRateLimiter(perMinute int, now func() time.Time) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / time.Minute.Seconds()),
		burst:    perMinute,
		idle:     3 * time.Minute,
		now:      now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// cleanup evicts idle visitors until close is called.
func (rl *rateLimiter) cleanup() {
	defer close(rl.done)
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evict()
		}
	}
}

func (rl *rateLimiter) evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.visitors, ip)
		}
	}
}

// close stops the eviction loop and waits for it to exit. Safe to call
// more than once.
func (rl *rateLimiter) close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
	<-rl.done
}

// allow reports whether ip may make a request now and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// middleware returns an HTTP middleware that rate limits by IP.
// RemoteAddr has already been rewritten by TrustedRealIP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(mw.ClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondErrorJSON(w, UserMessage{
				Message: "Rate limit exceeded",
				Action:  "Wait a minute before retrying",
				Code:    "RATE001",
			}, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
