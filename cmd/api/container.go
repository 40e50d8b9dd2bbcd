package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	appuser "github.com/lllypuk/userdesk/internal/application/user"
	"github.com/lllypuk/userdesk/internal/config"
	httphandler "github.com/lllypuk/userdesk/internal/handler/http"
	"github.com/lllypuk/userdesk/internal/infrastructure/healthcheck"
	mongodbinfra "github.com/lllypuk/userdesk/internal/infrastructure/mongodb"
	"github.com/lllypuk/userdesk/internal/infrastructure/repository/memory"
	"github.com/lllypuk/userdesk/internal/infrastructure/repository/mongodb"
	"github.com/lllypuk/userdesk/internal/middleware"
)

// Container initialization timeouts.
const (
	containerInitTimeout   = 30 * time.Second
	redisPingTimeout       = 5 * time.Second
	mongoDisconnectTimeout = 10 * time.Second
)

// Container holds the Users API dependencies and manages their lifecycle.
type Container struct {
	// Configuration
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	MongoDB        *mongo.Client
	Redis          *redis.Client
	RateLimitStore middleware.RateLimitStore
	Metrics        *prometheus.Registry
	Health         *healthcheck.Registry

	// Users
	UserRepo    appuser.Repository
	UserService *appuser.Service

	// HTTP Handlers
	UserHandler *httphandler.UserHandler
}

// ContainerOption configures the Container.
type ContainerOption func(*Container)

// WithLogger sets a custom logger for the container.
func WithLogger(logger *slog.Logger) ContainerOption {
	return func(c *Container) {
		c.Logger = logger
	}
}

// WithUserRepository replaces the repository chosen by app.mode.
func WithUserRepository(repo appuser.Repository) ContainerOption {
	return func(c *Container) {
		c.UserRepo = repo
	}
}

// NewContainer creates the Users API container.
// In real mode users live in MongoDB, in mock mode in memory.
func NewContainer(cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	c.logWiringMode()

	if err := c.setupInfrastructure(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to setup infrastructure: %w", err)
	}

	c.setupRepositories()
	c.setupServices()
	c.setupHealth()
	c.setupHTTPHandlers()

	if err := c.validateWiring(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("wiring validation failed: %w", err)
	}

	return c, nil
}

func (c *Container) logWiringMode() {
	attrs := []any{
		slog.String("mode", string(c.Config.App.Mode)),
		slog.Bool("is_development", c.Config.IsDevelopment()),
		slog.Bool("is_production", c.Config.IsProduction()),
	}
	if c.Config.App.IsMockMode() {
		c.Logger.Warn("users api starting in MOCK mode", attrs...)
		return
	}
	c.Logger.Info("users api starting in REAL mode", attrs...)
}

func (c *Container) validateWiring() error {
	var errs []error

	if c.UserRepo == nil {
		errs = append(errs, errors.New("user repository not initialized"))
	}
	if c.UserService == nil {
		errs = append(errs, errors.New("user service not initialized"))
	}
	if c.UserHandler == nil {
		errs = append(errs, errors.New("user handler not initialized"))
	}
	if c.Config.RateLimit.Enabled && c.RateLimitStore == nil {
		errs = append(errs, errors.New("rate limit store not initialized"))
	}

	return errors.Join(errs...)
}

func (c *Container) setupInfrastructure() error {
	ctx, cancel := context.WithTimeout(context.Background(), containerInitTimeout)
	defer cancel()

	c.Metrics = prometheus.NewRegistry()
	c.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if c.UserRepo == nil && c.Config.App.IsRealMode() {
		if err := c.setupMongoDB(ctx); err != nil {
			return fmt.Errorf("mongodb: %w", err)
		}
	}

	if c.Config.RateLimit.Enabled {
		if err := c.setupRateLimitStore(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	return nil
}

func (c *Container) setupMongoDB(ctx context.Context) error {
	clientOpts := options.Client().
		ApplyURI(c.Config.MongoDB.URI).
		SetMaxPoolSize(c.Config.MongoDB.MaxPoolSize)

	client, connectErr := mongo.Connect(clientOpts)
	if connectErr != nil {
		return fmt.Errorf("failed to connect: %w", connectErr)
	}
	c.MongoDB = client

	pingCtx, cancel := context.WithTimeout(ctx, c.Config.MongoDB.Timeout)
	defer cancel()

	if pingErr := client.Ping(pingCtx, nil); pingErr != nil {
		return fmt.Errorf("failed to ping: %w", pingErr)
	}

	c.Logger.InfoContext(ctx, "connected to MongoDB",
		slog.String("database", c.Config.MongoDB.Database),
	)

	db := client.Database(c.Config.MongoDB.Database)
	indexCtx, indexCancel := context.WithTimeout(ctx, c.Config.MongoDB.Timeout)
	defer indexCancel()

	if indexErr := mongodbinfra.CreateAllIndexes(indexCtx, db); indexErr != nil {
		return fmt.Errorf("failed to create indexes: %w", indexErr)
	}

	c.Logger.InfoContext(ctx, "MongoDB indexes created successfully")

	return nil
}

func (c *Container) setupRateLimitStore(ctx context.Context) error {
	if !strings.EqualFold(c.Config.RateLimit.Store, config.BackendRedis) {
		c.RateLimitStore = middleware.NewMemoryRateLimitStore()
		return nil
	}

	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
		PoolSize: c.Config.Redis.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if pingErr := c.Redis.Ping(pingCtx).Err(); pingErr != nil {
		return fmt.Errorf("failed to ping redis: %w", pingErr)
	}

	c.Logger.InfoContext(ctx, "connected to Redis",
		slog.String("addr", c.Config.Redis.Addr),
	)

	c.RateLimitStore = middleware.NewRedisRateLimitStore(c.Redis, "userdesk:api:ratelimit:")
	return nil
}

func (c *Container) setupRepositories() {
	if c.UserRepo != nil {
		return
	}

	if c.MongoDB == nil {
		c.UserRepo = memory.NewUserRepository()
		c.Logger.Debug("using in-memory user repository")
		return
	}

	db := c.MongoDB.Database(c.Config.MongoDB.Database)
	ids := mongodb.NewSequence(db.Collection(mongodbinfra.CollectionCounters), mongodbinfra.SequenceUsers)
	c.UserRepo = mongodb.NewUserRepository(
		db.Collection(mongodbinfra.CollectionUsers),
		ids,
		mongodb.WithUserRepoLogger(c.Logger),
	)
}

func (c *Container) setupServices() {
	c.UserService = appuser.NewService(c.UserRepo,
		appuser.WithPageSize(c.Config.API.PageSize),
		appuser.WithPasswordCost(c.Config.API.PasswordCost),
	)
}

func (c *Container) setupHealth() {
	c.Health = healthcheck.NewRegistry(healthcheck.WithLogger(c.Logger))

	if c.MongoDB != nil {
		c.Health.Require(healthcheck.NewMongoChecker(c.MongoDB))
	}
	if c.Redis != nil {
		// a rate limiter without redis lets requests through
		c.Health.Observe(healthcheck.NewRedisChecker(c.Redis))
	}
}

func (c *Container) setupHTTPHandlers() {
	c.UserHandler = httphandler.NewUserHandler(c.UserService)
}

// Close releases the container's connections.
func (c *Container) Close() error {
	c.Logger.Info("closing container resources...")

	var errs []error

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		} else {
			c.Logger.Debug("redis connection closed")
		}
	}

	if c.MongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
		defer cancel()

		if err := c.MongoDB.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb disconnect: %w", err))
		} else {
			c.Logger.Debug("mongodb connection closed")
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.Logger.Info("all container resources closed")
	return nil
}
