package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wshandler "github.com/lllypuk/userdesk/internal/handler/websocket"
	ws "github.com/lllypuk/userdesk/internal/infrastructure/websocket"
	"github.com/lllypuk/userdesk/internal/middleware"
	"github.com/lllypuk/userdesk/internal/store"
)

type fakeSessions map[string]bool

func (f fakeSessions) Touch(_ context.Context, id string) bool { return f[id] }

func runHub(t *testing.T) *ws.Hub {
	t.Helper()

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go hub.Run(ctx)
	require.Eventually(t, hub.IsRunning, time.Second, 5*time.Millisecond)
	return hub
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func sessionHeader(id string) http.Header {
	h := http.Header{}
	h.Set("Cookie", (&http.Cookie{Name: middleware.DefaultSessionCookie, Value: id}).String())
	return h
}

func TestNewHandler(t *testing.T) {
	t.Run("creates handler with defaults", func(t *testing.T) {
		handler := wshandler.NewHandler(ws.NewHub())
		assert.NotNil(t, handler)
	})

	t.Run("creates handler with options", func(t *testing.T) {
		handler := wshandler.NewHandler(ws.NewHub(),
			wshandler.WithSessions(fakeSessions{}, "sid"),
			wshandler.WithHandlerConfig(wshandler.HandlerConfig{
				ReadBufferSize:  2048,
				WriteBufferSize: 2048,
				CheckOrigin: func(r *http.Request) bool {
					return r.Host == "example.com"
				},
				ClientConfig: ws.DefaultClientConfig(),
			}),
		)
		assert.NotNil(t, handler)
	})
}

func TestDefaultHandlerConfig(t *testing.T) {
	config := wshandler.DefaultHandlerConfig()

	assert.Equal(t, 1024, config.ReadBufferSize)
	assert.Equal(t, 1024, config.WriteBufferSize)
	assert.Nil(t, config.CheckOrigin)
	assert.NotNil(t, config.Logger)
}

func TestHandler_HandleWebSocket(t *testing.T) {
	t.Run("rejects request without session", func(t *testing.T) {
		handler := wshandler.NewHandler(runHub(t), wshandler.WithSessions(fakeSessions{}, ""))

		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ws", nil), rec)

		require.NoError(t, handler.HandleWebSocket(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "NO_SESSION")
	})

	t.Run("rejects expired session cookie", func(t *testing.T) {
		handler := wshandler.NewHandler(runHub(t), wshandler.WithSessions(fakeSessions{"live": true}, ""))

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.AddCookie(&http.Cookie{Name: middleware.DefaultSessionCookie, Value: "gone"})
		rec := httptest.NewRecorder()

		require.NoError(t, handler.HandleWebSocket(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepts session from middleware", func(t *testing.T) {
		hub := runHub(t)
		handler := wshandler.NewHandler(hub)

		e := echo.New()
		e.GET("/ws", func(c echo.Context) error {
			c.Set(middleware.SessionIDKey, "s-1")
			return handler.HandleWebSocket(c)
		})
		server := httptest.NewServer(e)
		defer server.Close()

		conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
		require.NoError(t, err)
		defer conn.Close()

		assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
		assert.Eventually(t, func() bool { return hub.SessionConnectionCount("s-1") == 1 },
			time.Second, 10*time.Millisecond)
	})

	t.Run("accepts valid session cookie", func(t *testing.T) {
		hub := runHub(t)
		handler := wshandler.NewHandler(hub, wshandler.WithSessions(fakeSessions{"s-2": true}, ""))

		e := echo.New()
		handler.RegisterRoutes(e)
		server := httptest.NewServer(e)
		defer server.Close()

		conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server), sessionHeader("s-2"))
		require.NoError(t, err)
		defer conn.Close()

		assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
		assert.Eventually(t, func() bool { return hub.SessionConnectionCount("s-2") == 1 },
			time.Second, 10*time.Millisecond)
	})
}

func TestHandler_RegisterRoutes(t *testing.T) {
	handler := wshandler.NewHandler(ws.NewHub())

	e := echo.New()
	handler.RegisterRoutes(e)
	handler.RegisterRoutesWithGroup(e.Group("/live"))

	paths := map[string]bool{}
	for _, r := range e.Routes() {
		if r.Method == http.MethodGet {
			paths[r.Path] = true
		}
	}
	assert.True(t, paths["/ws"])
	assert.True(t, paths["/live/ws"])
}

func TestHandler_Integration(t *testing.T) {
	hub := runHub(t)
	handler := wshandler.NewHandler(hub, wshandler.WithSessions(fakeSessions{"s-3": true}, ""))
	broadcaster := ws.NewBroadcaster(hub)

	e := echo.New()
	handler.RegisterRoutes(e)
	server := httptest.NewServer(e)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), sessionHeader("s-3"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	var pong map[string]any
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong["type"])

	broadcaster.Toast("s-3", store.ToastCreated)

	var msg struct {
		Type string      `json:"type"`
		Data store.Toast `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypeToast, msg.Type)
	assert.Equal(t, store.ToastCreated, msg.Data)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}
