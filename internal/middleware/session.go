package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	// SessionIDKey is the context key for the browser session id.
	SessionIDKey = "session_id"

	// DefaultSessionCookie is the default name of the session cookie.
	DefaultSessionCookie = "userdesk_session"
)

// SessionStore knows which browser sessions are alive.
type SessionStore interface {
	// Touch reports whether id names a live session and marks it as used.
	Touch(ctx context.Context, id string) bool

	// Open starts a new session and returns its id.
	Open(ctx context.Context) string
}

// SessionConfig holds configuration for the session middleware.
type SessionConfig struct {
	Logger     *slog.Logger
	Store      SessionStore
	CookieName string
	Secure     bool

	// MaxAge is the cookie lifetime; zero makes it a browser-session cookie.
	MaxAge time.Duration
}

// Session returns a middleware that attaches every request to a browser
// session, opening a new one when the cookie is missing or stale.
func Session(config SessionConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.CookieName == "" {
		config.CookieName = DefaultSessionCookie
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Store == nil {
				return next(c)
			}

			ctx := c.Request().Context()

			var id string
			if cookie, err := c.Cookie(config.CookieName); err == nil && cookie.Value != "" {
				if config.Store.Touch(ctx, cookie.Value) {
					id = cookie.Value
				}
			}

			if id == "" {
				id = config.Store.Open(ctx)
				c.SetCookie(sessionCookie(config, id))
				config.Logger.DebugContext(ctx, "session opened",
					slog.String("session_id", id),
					slog.String("remote_ip", c.RealIP()),
				)
			}

			c.Set(SessionIDKey, id)

			return next(c)
		}
	}
}

func sessionCookie(config SessionConfig, id string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     config.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if config.MaxAge > 0 {
		cookie.MaxAge = int(config.MaxAge.Seconds())
	}
	return cookie
}

// GetSessionID retrieves the browser session id from the echo context.
func GetSessionID(c echo.Context) string {
	if id, ok := c.Get(SessionIDKey).(string); ok {
		return id
	}
	return ""
}
