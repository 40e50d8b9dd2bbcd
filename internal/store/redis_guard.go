package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultGuardPrefix = "userdesk:inflight:"
	defaultGuardTTL    = 30 * time.Second
)

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard is a Guard shared by every web replica.
// Locks expire after TTL so a crashed replica cannot keep a type pending.
type RedisGuard struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    *slog.Logger
}

// RedisGuardConfig contains configuration for RedisGuard.
type RedisGuardConfig struct {
	Client    redis.UniversalClient
	KeyPrefix string
	TTL       time.Duration
	Logger    *slog.Logger
}

// NewRedisGuard creates a Redis-backed guard.
func NewRedisGuard(cfg RedisGuardConfig) *RedisGuard {
	g := &RedisGuard{
		client:    cfg.Client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
		logger:    cfg.Logger,
	}
	if g.keyPrefix == "" {
		g.keyPrefix = defaultGuardPrefix
	}
	if g.ttl <= 0 {
		g.ttl = defaultGuardTTL
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Acquire implements Guard.
func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := g.keyPrefix + key
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, redisKey, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire in-flight lock: %w", err)
	}
	if !ok {
		return nil, ErrInFlight
	}

	return func() {
		// The caller's context may already be done when the call settles.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, g.client, []string{redisKey}, token).Err(); err != nil {
			g.logger.WarnContext(ctx, "failed to release in-flight lock",
				slog.String("key", redisKey),
				slog.String("error", err.Error()))
		}
	}, nil
}
