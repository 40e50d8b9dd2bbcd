package main

import (
	"net/http"

	"github.com/labstack/echo/v4"

	httphandler "github.com/lllypuk/userdesk/internal/handler/http"
	"github.com/lllypuk/userdesk/internal/infrastructure/httpserver"
	"github.com/lllypuk/userdesk/internal/middleware"
	"github.com/lllypuk/userdesk/web"
)

// SetupRoutes configures the page routes, static assets and the websocket
// endpoint on e.
func SetupRoutes(c *Container, e *echo.Echo) *httpserver.Router {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.Logger = c.Logger

	recoveryConfig := middleware.DefaultRecoveryConfig()
	recoveryConfig.Logger = c.Logger

	router := httpserver.NewRouter(e, httpserver.RouterConfig{
		Logger: c.Logger,
		SessionMiddleware: middleware.Session(middleware.SessionConfig{
			Logger:     c.Logger,
			Store:      c.Sessions,
			CookieName: c.Config.Session.CookieName,
			Secure:     c.Config.Session.Secure,
		}),
		CORSConfig:     middleware.DefaultCORSConfig(),
		LoggingConfig:  loggingConfig,
		RecoveryConfig: recoveryConfig,
		APIPrefix:      "/api",
	})

	e.Renderer = c.TemplateRenderer
	e.HTTPErrorHandler = c.TemplateHandler.ErrorHandler(e.DefaultHTTPErrorHandler)

	if err := httphandler.SetupStaticRoutes(e, web.StaticFS); err != nil {
		c.Logger.Error("failed to setup static routes", "error", err)
	}

	router.RegisterHealthEndpoints(c.Health)
	router.RegisterMetricsEndpoint(c.Metrics)

	pages := router.Pages()
	if c.Config.RateLimit.Enabled {
		pages.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Logger:    c.Logger,
			Store:     c.RateLimitStore,
			Limit:     c.Config.RateLimit.Limit,
			Window:    c.Config.RateLimit.Window,
			BurstSize: c.Config.RateLimit.Burst,
			Methods:   []string{http.MethodPost},
			KeyFunc:   middleware.KeyBySession,
		}))
	}

	c.TemplateHandler.RegisterRoutes(pages)
	c.UserTemplateHandler.RegisterRoutes(pages)

	// outside the page group so a socket never opens a session
	c.WSHandler.RegisterRoutes(e)

	if c.Config.IsDevelopment() {
		router.PrintRoutes()
	}

	return router
}
