package main

import (
	"github.com/labstack/echo/v4"

	"github.com/lllypuk/userdesk/internal/infrastructure/httpserver"
	"github.com/lllypuk/userdesk/internal/middleware"
)

// SetupRoutes configures the Users API routes and middleware chains on e.
func SetupRoutes(c *Container, e *echo.Echo) *httpserver.Router {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.Logger = c.Logger

	recoveryConfig := middleware.DefaultRecoveryConfig()
	recoveryConfig.Logger = c.Logger

	router := httpserver.NewRouter(e, httpserver.RouterConfig{
		Logger:         c.Logger,
		CORSConfig:     middleware.DefaultCORSConfig(),
		LoggingConfig:  loggingConfig,
		RecoveryConfig: recoveryConfig,
		APIPrefix:      "/api",
	})

	router.RegisterHealthEndpoints(c.Health)
	router.RegisterMetricsEndpoint(c.Metrics)

	if c.Config.RateLimit.Enabled {
		router.API().Use(middleware.RateLimit(middleware.RateLimitConfig{
			Logger:    c.Logger,
			Store:     c.RateLimitStore,
			Limit:     c.Config.RateLimit.Limit,
			Window:    c.Config.RateLimit.Window,
			BurstSize: c.Config.RateLimit.Burst,
			KeyFunc:   middleware.KeyByIP,
			Message:   "Too many requests",
		}))
	}

	router.RegisterAll(c.UserHandler)

	if c.Config.IsDevelopment() {
		router.PrintRoutes()
	}

	return router
}
