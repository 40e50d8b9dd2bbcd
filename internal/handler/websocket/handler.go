// Package websocket provides HTTP handlers for WebSocket connections.
package websocket

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	ws "github.com/lllypuk/userdesk/internal/infrastructure/websocket"
	"github.com/lllypuk/userdesk/internal/middleware"
)

// Handler configuration constants.
const (
	defaultHandlerReadBufferSize  = 1024
	defaultHandlerWriteBufferSize = 1024
)

// SessionValidator reports whether a browser session is still open.
// Declared on the consumer side per project guidelines.
type SessionValidator interface {
	Touch(ctx context.Context, id string) bool
}

// Handler handles WebSocket HTTP requests.
type Handler struct {
	hub          *ws.Hub
	upgrader     websocket.Upgrader
	sessions     SessionValidator
	cookieName   string
	logger       *slog.Logger
	clientConfig ws.ClientConfig
}

// HandlerConfig holds configuration for the WebSocket handler.
type HandlerConfig struct {
	// ReadBufferSize is the size of the read buffer for WebSocket connections.
	ReadBufferSize int

	// WriteBufferSize is the size of the write buffer for WebSocket connections.
	WriteBufferSize int

	// CheckOrigin returns true if the request origin is acceptable.
	// If nil, all origins are allowed.
	CheckOrigin func(r *http.Request) bool

	// Logger is the structured logger for the handler.
	Logger *slog.Logger

	// ClientConfig is the configuration for WebSocket clients.
	ClientConfig ws.ClientConfig
}

// DefaultHandlerConfig returns a default configuration.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		ReadBufferSize:  defaultHandlerReadBufferSize,
		WriteBufferSize: defaultHandlerWriteBufferSize,
		CheckOrigin:     nil,
		Logger:          slog.Default(),
		ClientConfig:    ws.DefaultClientConfig(),
	}
}

// HandlerOption configures the Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger for the handler.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithSessions lets the handler resolve the session cookie itself
// when no session middleware ran before it.
func WithSessions(sessions SessionValidator, cookieName string) HandlerOption {
	return func(h *Handler) {
		h.sessions = sessions
		if cookieName != "" {
			h.cookieName = cookieName
		}
	}
}

// WithHandlerConfig sets the handler configuration.
func WithHandlerConfig(config HandlerConfig) HandlerOption {
	return func(h *Handler) {
		h.upgrader.ReadBufferSize = config.ReadBufferSize
		h.upgrader.WriteBufferSize = config.WriteBufferSize
		if config.CheckOrigin != nil {
			h.upgrader.CheckOrigin = config.CheckOrigin
		}
		if config.Logger != nil {
			h.logger = config.Logger
		}
		h.clientConfig = config.ClientConfig
	}
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub *ws.Hub, opts ...HandlerOption) *Handler {
	h := &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  defaultHandlerReadBufferSize,
			WriteBufferSize: defaultHandlerWriteBufferSize,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		cookieName:   middleware.DefaultSessionCookie,
		logger:       slog.Default(),
		clientConfig: ws.DefaultClientConfig(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// HandleWebSocket upgrades the request and registers the connection under
// the caller's browser session. Requests without an open session get 401.
func (h *Handler) HandleWebSocket(c echo.Context) error {
	sessionID := h.sessionID(c)
	if sessionID == "" {
		h.logger.Warn("websocket connection rejected: no session",
			slog.String("remote_ip", c.RealIP()),
		)
		return c.JSON(http.StatusUnauthorized, map[string]any{
			"success": false,
			"error": map[string]string{
				"code":    "NO_SESSION",
				"message": "Session required",
			},
		})
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return nil // Upgrade already sent an error response
	}

	client := ws.NewClient(
		h.hub,
		conn,
		sessionID,
		ws.WithClientConfig(h.clientConfig),
		ws.WithClientLogger(h.logger),
	)

	h.hub.Register(client)

	h.logger.Info("websocket connection established",
		slog.String("session_id", sessionID),
		slog.String("remote_ip", c.RealIP()),
	)

	go client.WritePump()
	go client.ReadPump()

	return nil
}

// sessionID prefers the id set by the session middleware and falls back
// to validating the session cookie.
func (h *Handler) sessionID(c echo.Context) string {
	if id := middleware.GetSessionID(c); id != "" {
		return id
	}

	if h.sessions == nil {
		return ""
	}

	cookie, err := c.Cookie(h.cookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}

	if !h.sessions.Touch(c.Request().Context(), cookie.Value) {
		h.logger.Debug("websocket session expired",
			slog.String("session_id", cookie.Value),
		)
		return ""
	}

	return cookie.Value
}

// RegisterRoutes registers the WebSocket handler with the Echo router.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.HandleWebSocket)
}

// RegisterRoutesWithGroup registers the WebSocket handler with an Echo group.
func (h *Handler) RegisterRoutesWithGroup(g *echo.Group) {
	g.GET("/ws", h.HandleWebSocket)
}
