package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Rate limit defaults.
const (
	DefaultRateLimit       = 60
	DefaultRateLimitWindow = time.Minute
	DefaultBurstSize       = 10

	defaultRateLimitPrefix = "userdesk:ratelimit:"
)

// RateLimitStore counts requests per key inside a fixed window.
type RateLimitStore interface {
	// Increment bumps the counter for key and returns the new count and the
	// time left in the current window.
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	Logger *slog.Logger

	// Store disables the middleware when nil.
	Store RateLimitStore

	Limit     int
	Window    time.Duration
	BurstSize int

	// Methods restricts limiting to these methods; empty means all.
	Methods []string

	// KeyFunc defaults to KeyBySession.
	KeyFunc func(c echo.Context) string

	SkipPaths []string
	Message   string
}

// DefaultRateLimitConfig returns a RateLimitConfig with sensible defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Logger:    slog.Default(),
		Limit:     DefaultRateLimit,
		Window:    DefaultRateLimitWindow,
		BurstSize: DefaultBurstSize,
		SkipPaths: []string{"/health", "/ready", "/metrics"},
		Message:   "Demasiadas solicitudes. Intente de nuevo más tarde.",
	}
}

// RateLimit returns a rate limiting middleware with the given configuration.
// Store failures let the request through.
func RateLimit(config RateLimitConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Limit <= 0 {
		config.Limit = DefaultRateLimit
	}
	if config.Window <= 0 {
		config.Window = DefaultRateLimitWindow
	}
	if config.KeyFunc == nil {
		config.KeyFunc = KeyBySession
	}
	if config.Message == "" {
		config.Message = DefaultRateLimitConfig().Message
	}

	total := int64(config.Limit + config.BurstSize)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if config.Store == nil || slices.Contains(config.SkipPaths, req.URL.Path) {
				return next(c)
			}
			if len(config.Methods) > 0 && !slices.Contains(config.Methods, req.Method) {
				return next(c)
			}

			key := config.KeyFunc(c)

			count, ttl, err := config.Store.Increment(req.Context(), key, config.Window)
			if err != nil {
				config.Logger.ErrorContext(req.Context(), "failed to increment rate limit counter",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-Ratelimit-Limit", strconv.FormatInt(total, 10))
			h.Set("X-Ratelimit-Remaining", strconv.FormatInt(max(total-count, 0), 10))
			if ttl > 0 {
				h.Set("X-Ratelimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))
			}

			if count <= total {
				return next(c)
			}

			config.Logger.WarnContext(req.Context(), "rate limit exceeded",
				slog.String("key", key),
				slog.Int64("count", count),
				slog.Int64("limit", total),
				slog.String("path", req.URL.Path),
			)

			if ttl > 0 {
				h.Set("Retry-After", strconv.FormatInt(int64(ttl.Seconds()), 10))
			}
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"success": false,
				"error": map[string]any{
					"code":        "RATE_LIMIT_EXCEEDED",
					"message":     config.Message,
					"retry_after": int64(ttl.Seconds()),
				},
			})
		}
	}
}

// KeyBySession limits per browser session, falling back to the client IP.
func KeyBySession(c echo.Context) string {
	if sid := GetSessionID(c); sid != "" {
		return "session:" + sid
	}
	return KeyByIP(c)
}

// KeyByIP limits per client IP.
func KeyByIP(c echo.Context) string {
	return "ip:" + c.RealIP()
}

// MemoryRateLimitStore is a process-local RateLimitStore.
type MemoryRateLimitStore struct {
	mu     sync.Mutex
	counts map[string]*rateLimitEntry
	now    func() time.Time
}

type rateLimitEntry struct {
	count     int64
	expiresAt time.Time
}

// NewMemoryRateLimitStore creates a new in-memory rate limit store.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{
		counts: make(map[string]*rateLimitEntry),
		now:    time.Now,
	}
}

// Increment implements RateLimitStore.
func (s *MemoryRateLimitStore) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.counts[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		s.counts[key] = entry
	}
	entry.count++

	return entry.count, entry.expiresAt.Sub(now), nil
}

// RedisRateLimitStore shares counters between replicas.
type RedisRateLimitStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
func NewRedisRateLimitStore(client redis.UniversalClient, keyPrefix string) *RedisRateLimitStore {
	if keyPrefix == "" {
		keyPrefix = defaultRateLimitPrefix
	}
	return &RedisRateLimitStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Increment implements RateLimitStore.
func (s *RedisRateLimitStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	fullKey := s.keyPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)
	ttl := pipe.PTTL(ctx, fullKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	return incr.Val(), max(ttl.Val(), 0), nil
}
