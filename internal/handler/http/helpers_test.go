package httphandler_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appuser "github.com/lllypuk/userdesk/internal/application/user"
	"github.com/lllypuk/userdesk/internal/domain/user"
	httphandler "github.com/lllypuk/userdesk/internal/handler/http"
	"github.com/lllypuk/userdesk/internal/infrastructure/httpserver"
	"github.com/lllypuk/userdesk/internal/infrastructure/repository/memory"
	"github.com/lllypuk/userdesk/internal/middleware"
	"github.com/lllypuk/userdesk/internal/session"
	"github.com/lllypuk/userdesk/internal/store"
	"github.com/lllypuk/userdesk/web"
)

var discard = slog.New(slog.DiscardHandler)

// seedUsers returns n valid users with ids 1..n.
func seedUsers(n int) []user.User {
	users := make([]user.User, 0, n)
	for i := 1; i <= n; i++ {
		users = append(users, user.User{
			ID:       int64(i),
			Name:     fmt.Sprintf("Name%d", i),
			Lastname: fmt.Sprintf("Last%d", i),
			Email:    fmt.Sprintf("user%d@example.com", i),
			Username: fmt.Sprintf("user%04d", i),
			Password: "$2a$04$seeded",
		})
	}
	return users
}

func newService(seed ...user.User) *appuser.Service {
	return appuser.NewService(
		memory.NewUserRepository(seed...),
		appuser.WithPasswordCost(bcrypt.MinCost),
	)
}

func newRouterConfig() httpserver.RouterConfig {
	cfg := httpserver.DefaultRouterConfig()
	cfg.Logger = discard
	cfg.LoggingConfig.Logger = discard
	cfg.RecoveryConfig.Logger = discard
	return cfg
}

// pageApp is the web frontend wired the way cmd/web wires it, with the
// remote served in process.
type pageApp struct {
	e        *echo.Echo
	sessions *session.Manager
}

func newPageApp(t *testing.T, remote store.Remote) *pageApp {
	t.Helper()

	sessions := session.NewManager(func(s *session.Session) *store.Store {
		effects := store.NewUserEffects(remote,
			store.WithGuardKey(s.ID()),
			store.WithNavigator(s),
			store.WithNotifier(s),
			store.WithEffectLogger(discard),
		)
		return store.New(store.WithEffects(effects), store.WithLogger(discard))
	}, session.WithLogger(discard))

	renderer, err := httphandler.NewTemplateRenderer(httphandler.TemplateRendererConfig{
		FS:     web.TemplatesFS,
		Logger: discard,
	})
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer

	pages := httphandler.NewTemplateHandler(discard)
	e.HTTPErrorHandler = pages.ErrorHandler(e.DefaultHTTPErrorHandler)

	cfg := newRouterConfig()
	cfg.SessionMiddleware = middleware.Session(middleware.SessionConfig{
		Logger: discard,
		Store:  sessions,
	})
	router := httpserver.NewRouter(e, cfg)

	pages.RegisterRoutes(router.Pages())
	httphandler.NewUserTemplateHandler(sessions, discard).RegisterRoutes(router.Pages())

	return &pageApp{e: e, sessions: sessions}
}

// browser keeps the session cookie between requests.
type browser struct {
	t      *testing.T
	app    *pageApp
	cookie *http.Cookie
}

func (a *pageApp) browser(t *testing.T) *browser {
	return &browser{t: t, app: a}
}

func (b *browser) do(method, path string, form url.Values, headers map[string]string) *httptest.ResponseRecorder {
	b.t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderAccept, echo.MIMETextHTML)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}

	rec := httptest.NewRecorder()
	b.app.e.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.DefaultSessionCookie {
			b.cookie = c
		}
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, path, nil, nil)
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	return b.do(http.MethodPost, path, form, nil)
}

func userForm(u user.User) url.Values {
	v := url.Values{}
	if u.ID > 0 {
		v.Set("id", fmt.Sprint(u.ID))
	}
	v.Set("name", u.Name)
	v.Set("lastname", u.Lastname)
	v.Set("email", u.Email)
	v.Set("username", u.Username)
	v.Set("password", u.Password)
	return v
}

// blockingRemote holds the first page load until released.
type blockingRemote struct {
	store.Remote
	started chan struct{}
	release chan struct{}
	calls   chan int
}

func newBlockingRemote(inner store.Remote) *blockingRemote {
	return &blockingRemote{
		Remote:  inner,
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		calls:   make(chan int, 16),
	}
}

func (r *blockingRemote) FindAllPageable(ctx context.Context, page int) (user.Page, error) {
	r.calls <- page
	select {
	case r.started <- struct{}{}:
	default:
	}
	<-r.release
	return r.Remote.FindAllPageable(ctx, page)
}
