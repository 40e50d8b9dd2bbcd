package middleware_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/userdesk/internal/middleware"
)

type fakeSessions struct {
	mu    sync.Mutex
	live  map[string]bool
	opens int
}

func newFakeSessions(ids ...string) *fakeSessions {
	s := &fakeSessions{live: make(map[string]bool)}
	for _, id := range ids {
		s.live[id] = true
	}
	return s
}

func (s *fakeSessions) Touch(_ context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[id]
}

func (s *fakeSessions) Open(_ context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	id := fmt.Sprintf("new-%d", s.opens)
	s.live[id] = true
	return id
}

func newSessionEcho(store middleware.SessionStore, maxAge time.Duration) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Session(middleware.SessionConfig{
		Store:  store,
		MaxAge: maxAge,
	}))
	e.GET("/users", func(c echo.Context) error {
		return c.String(http.StatusOK, middleware.GetSessionID(c))
	})
	return e
}

func TestSession_OpensWhenCookieMissing(t *testing.T) {
	store := newFakeSessions()
	e := newSessionEcho(store, 30*time.Minute)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

	assert.Equal(t, "new-1", rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.DefaultSessionCookie, cookies[0].Name)
	assert.Equal(t, "new-1", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, "/", cookies[0].Path)
	assert.Equal(t, 1800, cookies[0].MaxAge)
}

func TestSession_ReusesLiveSession(t *testing.T) {
	store := newFakeSessions("abc")
	e := newSessionEcho(store, 0)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.AddCookie(&http.Cookie{Name: middleware.DefaultSessionCookie, Value: "abc"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "abc", rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, 0, store.opens)
}

func TestSession_ReplacesStaleSession(t *testing.T) {
	store := newFakeSessions()
	e := newSessionEcho(store, 0)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.AddCookie(&http.Cookie{Name: middleware.DefaultSessionCookie, Value: "expired"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "new-1", rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "new-1", cookies[0].Value)
	assert.Zero(t, cookies[0].MaxAge)
}

func TestSession_NoStore(t *testing.T) {
	e := echo.New()
	e.Use(middleware.Session(middleware.SessionConfig{}))
	e.GET("/users", func(c echo.Context) error {
		return c.String(http.StatusOK, middleware.GetSessionID(c))
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
