package httphandler

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/userdesk/internal/middleware"
	"github.com/lllypuk/userdesk/internal/store"
)

// TemplateRenderer implements echo.Renderer for HTML template rendering.
type TemplateRenderer struct {
	templates *template.Template
	mu        sync.RWMutex
	logger    *slog.Logger
	devMode   bool
	fs        fs.FS
}

// TemplateRendererConfig holds configuration for the template renderer.
type TemplateRendererConfig struct {
	// FS holds the templates directory.
	FS fs.FS
	// Logger is the structured logger.
	Logger *slog.Logger
	// DevMode enables template reloading on each request.
	DevMode bool
}

// NewTemplateRenderer creates a new template renderer.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	r := &TemplateRenderer{
		logger:  cfg.Logger,
		devMode: cfg.DevMode,
		fs:      cfg.FS,
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	if err := r.loadTemplates(); err != nil {
		return nil, err
	}

	return r, nil
}

// loadTemplates parses every .html file under templates/, named by its
// path relative to that directory.
func (r *TemplateRenderer) loadTemplates() error {
	tmpl := template.New("").Funcs(TemplateFuncs())

	err := fs.WalkDir(r.fs, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".html" {
			return nil
		}

		content, readErr := fs.ReadFile(r.fs, path)
		if readErr != nil {
			return readErr
		}

		name := strings.TrimPrefix(path, "templates/")
		if _, parseErr := tmpl.New(name).Parse(string(content)); parseErr != nil {
			r.logger.Error("failed to parse template",
				slog.String("path", path),
				slog.String("error", parseErr.Error()))
			return parseErr
		}

		r.logger.Debug("loaded template", slog.String("name", name))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()
	return nil
}

// Render implements echo.Renderer.
func (r *TemplateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	if r.devMode {
		if err := r.loadTemplates(); err != nil {
			r.logger.Error("failed to reload templates", slog.String("error", err.Error()))
			return fmt.Errorf("failed to reload templates: %w", err)
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(w, name, data)
}

// PageData represents common data passed to all page templates.
type PageData struct {
	Title  string
	Toasts []store.Toast
	Data   any
}

// TemplateHandler serves the pages that do not belong to a resource.
type TemplateHandler struct {
	logger *slog.Logger
}

// NewTemplateHandler creates a new template handler.
func NewTemplateHandler(logger *slog.Logger) *TemplateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateHandler{logger: logger}
}

// Home redirects to the user list.
func (h *TemplateHandler) Home(c echo.Context) error {
	return c.Redirect(http.StatusFound, store.RouteUsers)
}

// NotFound renders the 404 page.
func (h *TemplateHandler) NotFound(c echo.Context) error {
	return c.Render(http.StatusNotFound, "errors/404.html", PageData{Title: "No encontrado"})
}

// ErrorHandler renders HTML error pages for browser requests and leaves
// JSON requests to next.
func (h *TemplateHandler) ErrorHandler(next echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed || !wantsHTML(c) {
			next(err, c)
			return
		}

		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		name := "errors/500.html"
		title := "Error"
		if code == http.StatusNotFound {
			name = "errors/404.html"
			title = "No encontrado"
		}
		if code >= http.StatusInternalServerError {
			h.logger.Error("page request failed",
				slog.String("path", c.Request().URL.Path),
				slog.String("request_id", middleware.GetRequestID(c)),
				slog.String("error", err.Error()))
		}

		if renderErr := c.Render(code, name, PageData{Title: title}); renderErr != nil {
			next(err, c)
		}
	}
}

// RegisterRoutes registers the root route.
func (h *TemplateHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/", h.Home)
}

// SetupStaticRoutes serves the static/ directory of staticFS under /static.
func SetupStaticRoutes(e *echo.Echo, staticFS fs.FS) error {
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return fmt.Errorf("static assets: %w", err)
	}

	e.StaticFS("/static", staticSub)

	return nil
}

func wantsHTML(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML) ||
		isHTMX(c)
}

func isHTMX(c echo.Context) bool {
	return c.Request().Header.Get(middleware.HeaderHXRequest) == "true"
}

// redirect sends the browser to route: HX-Redirect for htmx requests,
// 303 See Other otherwise so a POST becomes a GET.
func redirect(c echo.Context, route string) error {
	if isHTMX(c) {
		c.Response().Header().Set(middleware.HeaderHXRedirect, route)
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, route)
}
