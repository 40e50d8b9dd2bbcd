package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	appuser "github.com/lllypuk/userdesk/internal/application/user"
	"github.com/lllypuk/userdesk/internal/config"
	httphandler "github.com/lllypuk/userdesk/internal/handler/http"
	wshandler "github.com/lllypuk/userdesk/internal/handler/websocket"
	"github.com/lllypuk/userdesk/internal/infrastructure/healthcheck"
	"github.com/lllypuk/userdesk/internal/infrastructure/metrics"
	"github.com/lllypuk/userdesk/internal/infrastructure/repository/memory"
	"github.com/lllypuk/userdesk/internal/infrastructure/usersapi"
	"github.com/lllypuk/userdesk/internal/infrastructure/websocket"
	"github.com/lllypuk/userdesk/internal/middleware"
	"github.com/lllypuk/userdesk/internal/session"
	"github.com/lllypuk/userdesk/internal/store"
	"github.com/lllypuk/userdesk/web"
)

// Container initialization timeouts.
const (
	containerInitTimeout = 30 * time.Second
	redisPingTimeout     = 5 * time.Second
)

// Container holds the web frontend dependencies and manages their lifecycle.
type Container struct {
	// Configuration
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	Redis          *redis.Client
	Remote         store.Remote
	Guard          store.Guard
	RateLimitStore middleware.RateLimitStore
	Hub            *websocket.Hub
	Broadcaster    *websocket.Broadcaster
	Metrics        *prometheus.Registry
	StoreMetrics   *metrics.StoreMetrics
	Health         *healthcheck.Registry

	// Sessions
	Sessions *session.Manager

	// HTTP Handlers
	TemplateRenderer    *httphandler.TemplateRenderer
	TemplateHandler     *httphandler.TemplateHandler
	UserTemplateHandler *httphandler.UserTemplateHandler
	WSHandler           *wshandler.Handler
}

// ContainerOption configures the Container.
type ContainerOption func(*Container)

// WithLogger sets a custom logger for the container.
func WithLogger(logger *slog.Logger) ContainerOption {
	return func(c *Container) {
		c.Logger = logger
	}
}

// WithRemote replaces the Users API chosen by app.mode.
func WithRemote(remote store.Remote) ContainerOption {
	return func(c *Container) {
		c.Remote = remote
	}
}

// NewContainer creates the web frontend container.
// In real mode the stores talk to the Users API over HTTP, in mock mode to
// an in-process service over an in-memory repository.
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

	c.setupRemote()
	c.setupSessions()
	c.setupHealth()

	if err := c.setupTemplateRenderer(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to setup template renderer: %w", err)
	}

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
		slog.String("guard", c.Config.Guard.Type),
		slog.Bool("is_development", c.Config.IsDevelopment()),
		slog.Bool("is_production", c.Config.IsProduction()),
	}
	if c.Config.App.IsMockMode() {
		c.Logger.Warn("web frontend starting in MOCK mode", attrs...)
		return
	}
	c.Logger.Info("web frontend starting in REAL mode", attrs...)
}

func (c *Container) validateWiring() error {
	var errs []error

	if c.Remote == nil {
		errs = append(errs, errors.New("users remote not initialized"))
	}
	if c.Guard == nil {
		errs = append(errs, errors.New("in-flight guard not initialized"))
	}
	if c.Hub == nil {
		errs = append(errs, errors.New("websocket hub not initialized"))
	}
	if c.Sessions == nil {
		errs = append(errs, errors.New("session manager not initialized"))
	}
	if c.UserTemplateHandler == nil {
		errs = append(errs, errors.New("user template handler not initialized"))
	}
	if c.WSHandler == nil {
		errs = append(errs, errors.New("websocket handler not initialized"))
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
	c.StoreMetrics = metrics.NewStoreMetrics(c.Metrics)

	if c.Config.UsesRedis() {
		if err := c.setupRedis(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}

	c.setupGuard()
	c.setupRateLimitStore()

	c.Hub = websocket.NewHub(websocket.WithHubLogger(c.Logger))
	c.Broadcaster = websocket.NewBroadcaster(c.Hub, websocket.WithBroadcasterLogger(c.Logger))

	return nil
}

func (c *Container) setupRedis(ctx context.Context) error {
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
		PoolSize: c.Config.Redis.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if pingErr := c.Redis.Ping(pingCtx).Err(); pingErr != nil {
		return fmt.Errorf("failed to ping: %w", pingErr)
	}

	c.Logger.InfoContext(ctx, "connected to Redis",
		slog.String("addr", c.Config.Redis.Addr),
	)

	return nil
}

func (c *Container) setupGuard() {
	if strings.EqualFold(c.Config.Guard.Type, config.BackendRedis) {
		c.Guard = store.NewRedisGuard(store.RedisGuardConfig{
			Client:    c.Redis,
			KeyPrefix: c.Config.Guard.KeyPrefix,
			TTL:       c.Config.Guard.TTL,
			Logger:    c.Logger,
		})
		return
	}
	c.Guard = store.NewMemoryGuard()
}

func (c *Container) setupRateLimitStore() {
	if !c.Config.RateLimit.Enabled {
		return
	}
	if strings.EqualFold(c.Config.RateLimit.Store, config.BackendRedis) {
		c.RateLimitStore = middleware.NewRedisRateLimitStore(c.Redis, "userdesk:web:ratelimit:")
		return
	}
	c.RateLimitStore = middleware.NewMemoryRateLimitStore()
}

func (c *Container) setupRemote() {
	if c.Remote != nil {
		return
	}

	if c.Config.App.IsMockMode() {
		c.Remote = appuser.NewService(memory.NewUserRepository(),
			appuser.WithPageSize(c.Config.API.PageSize),
			appuser.WithPasswordCost(c.Config.API.PasswordCost),
		)
		c.Logger.Debug("serving users in process")
		return
	}

	c.Remote = usersapi.NewClient(usersapi.Config{
		BaseURL:    c.Config.Remote.BaseURL,
		HTTPClient: &http.Client{Timeout: c.Config.Remote.Timeout},
	})
	c.Logger.Debug("users api client created", slog.String("base_url", c.Config.Remote.BaseURL))
}

// newStore builds the store of a freshly opened session.
func (c *Container) newStore(s *session.Session) *store.Store {
	logger := c.Logger.With(slog.String("session_id", s.ID()))

	effects := store.NewUserEffects(c.Remote,
		store.WithGuard(c.Guard),
		store.WithGuardKey(s.ID()),
		store.WithNavigator(s),
		store.WithNotifier(s),
		store.WithEffectLogger(logger),
		store.WithEffectMetrics(c.StoreMetrics),
		store.WithRemoteTimeout(c.Config.Remote.Timeout),
	)

	return store.New(
		store.WithEffects(effects),
		store.WithLogger(logger),
		store.WithMetrics(c.StoreMetrics),
	)
}

func (c *Container) setupSessions() {
	c.Sessions = session.NewManager(c.newStore,
		session.WithBroadcaster(c.Broadcaster),
		session.WithMetrics(c.StoreMetrics),
		session.WithLogger(c.Logger),
		session.WithIdleTTL(c.Config.Session.IdleTTL),
		session.WithSweepInterval(c.Config.Session.SweepInterval),
	)
}

func (c *Container) setupHealth() {
	c.Health = healthcheck.NewRegistry(healthcheck.WithLogger(c.Logger))

	c.Health.Require(healthcheck.NewHubChecker(c.Hub))

	if _, remote := c.Remote.(*usersapi.Client); remote {
		c.Health.Require(healthcheck.NewProbeChecker("users_api", func(ctx context.Context) error {
			_, err := c.Remote.FindAllPageable(ctx, 0)
			return err
		}))
	}

	if c.Redis != nil {
		if strings.EqualFold(c.Config.Guard.Type, config.BackendRedis) {
			c.Health.Require(healthcheck.NewRedisChecker(c.Redis))
		} else {
			c.Health.Observe(healthcheck.NewRedisChecker(c.Redis))
		}
	}

	c.Health.Observe(healthcheck.NewCountChecker("sessions", c.Sessions))
}

func (c *Container) setupTemplateRenderer() error {
	renderer, err := httphandler.NewTemplateRenderer(httphandler.TemplateRendererConfig{
		FS:      web.TemplatesFS,
		Logger:  c.Logger,
		DevMode: false,
	})
	if err != nil {
		return err
	}
	c.TemplateRenderer = renderer
	return nil
}

func (c *Container) setupHTTPHandlers() {
	c.TemplateHandler = httphandler.NewTemplateHandler(c.Logger)
	c.UserTemplateHandler = httphandler.NewUserTemplateHandler(c.Sessions, c.Logger)

	wsConfig := wshandler.DefaultHandlerConfig()
	wsConfig.Logger = c.Logger
	wsConfig.ReadBufferSize = c.Config.WebSocket.ReadBufferSize
	wsConfig.WriteBufferSize = c.Config.WebSocket.WriteBufferSize
	wsConfig.ClientConfig.ReadBufferSize = c.Config.WebSocket.ReadBufferSize
	wsConfig.ClientConfig.WriteBufferSize = c.Config.WebSocket.WriteBufferSize
	wsConfig.ClientConfig.PingInterval = c.Config.WebSocket.PingInterval
	wsConfig.ClientConfig.PongWait = c.Config.WebSocket.PongTimeout

	c.WSHandler = wshandler.NewHandler(c.Hub,
		wshandler.WithHandlerConfig(wsConfig),
		wshandler.WithSessions(c.Sessions, c.Config.Session.CookieName),
	)
}

// Close releases the container's connections.
// Sessions and the hub stop with the context passed to their Run.
func (c *Container) Close() error {
	c.Logger.Info("closing container resources...")

	if c.Hub != nil {
		c.Hub.Stop()
		c.Logger.Debug("websocket hub stopped")
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			return fmt.Errorf("redis close: %w", err)
		}
		c.Logger.Debug("redis connection closed")
	}

	c.Logger.Info("all container resources closed")
	return nil
}
