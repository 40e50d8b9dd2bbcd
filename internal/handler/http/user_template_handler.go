package httphandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/userdesk/internal/domain/user"
	"github.com/lllypuk/userdesk/internal/middleware"
	"github.com/lllypuk/userdesk/internal/session"
	"github.com/lllypuk/userdesk/internal/store"
)

// usersTableTarget is the element id htmx swaps on paginator clicks.
const usersTableTarget = "users"

// errSessionGone is returned when the session vanished between the
// session middleware and the handler.
var errSessionGone = echo.NewHTTPError(http.StatusUnauthorized, "session expired")

// Sessions looks up browser sessions.
// Declared on the consumer side per project guidelines.
type Sessions interface {
	Get(id string) (*session.Session, bool)
}

// UserForm is the user form as posted by the browser.
type UserForm struct {
	ID       int64  `form:"id"`
	Name     string `form:"name"`
	Lastname string `form:"lastname"`
	Email    string `form:"email"`
	Username string `form:"username"`
	Password string `form:"password"`
}

func (f UserForm) toUser() user.User {
	return user.User{
		ID:       f.ID,
		Name:     f.Name,
		Lastname: f.Lastname,
		Email:    f.Email,
		Username: f.Username,
		Password: f.Password,
	}
}

// ListView is the data of the user list page.
type ListView struct {
	Users     []user.User
	Paginator user.Paginator
}

// FormView is the data of the create and edit form.
type FormView struct {
	User   user.User
	Errors user.FormErrors
	Busy   bool
}

// ConfirmView is the data of the delete confirmation.
type ConfirmView struct {
	ID    int64
	User  user.User
	Found bool
}

// UserTemplateHandler renders the user screen and turns browser
// interactions into store dispatches.
type UserTemplateHandler struct {
	sessions Sessions
	logger   *slog.Logger
}

// NewUserTemplateHandler creates a new UserTemplateHandler.
func NewUserTemplateHandler(sessions Sessions, logger *slog.Logger) *UserTemplateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserTemplateHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// RegisterRoutes registers the user pages on a session-guarded group.
func (h *UserTemplateHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/users", h.List)
	g.GET("/users/page/:page", h.List)
	g.GET("/users/create", h.CreateForm)
	g.GET("/users/edit/:id", h.EditForm)
	g.POST("/users", h.Save)
	g.GET("/users/:id/delete", h.ConfirmDelete)
	g.POST("/users/:id/delete", h.Delete)
}

// List handles GET /users and GET /users/page/:page.
func (h *UserTemplateHandler) List(c echo.Context) error {
	page := 0
	if raw := c.Param("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.ErrNotFound
		}
		page = n
	}

	sess, err := h.session(c)
	if err != nil {
		return err
	}

	if _, dispatchErr := sess.Dispatch(c.Request().Context(), store.Load{Page: page}); dispatchErr != nil {
		if !errors.Is(dispatchErr, store.ErrInFlight) {
			return dispatchErr
		}
		h.logger.DebugContext(c.Request().Context(), "page load already in flight",
			slog.String("session_id", sess.ID()),
			slog.Int("page", page))
	}

	st := sess.Store().State()
	view := ListView{Users: st.Users, Paginator: st.Paginator}

	if isHTMX(c) && c.Request().Header.Get(middleware.HeaderHXTarget) == usersTableTarget {
		return c.Render(http.StatusOK, "users-table", view)
	}
	return h.render(c, sess, http.StatusOK, "users/list.html", "Usuarios", view)
}

// CreateForm handles GET /users/create.
func (h *UserTemplateHandler) CreateForm(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	if _, dispatchErr := sess.Dispatch(c.Request().Context(), store.ResetForm{}); dispatchErr != nil {
		return dispatchErr
	}

	return h.render(c, sess, http.StatusOK, "users/form.html", "Crear usuario", FormView{})
}

// EditForm handles GET /users/edit/:id. Only users of the loaded page
// can be edited.
func (h *UserTemplateHandler) EditForm(c echo.Context) error {
	id, ok := parseUserID(c)
	if !ok {
		return echo.ErrNotFound
	}

	sess, err := h.session(c)
	if err != nil {
		return err
	}

	if _, dispatchErr := sess.Dispatch(c.Request().Context(), store.ResetForm{}); dispatchErr != nil {
		return dispatchErr
	}

	u, found := sess.Store().Find(id)
	if !found {
		return echo.ErrNotFound
	}

	return h.render(c, sess, http.StatusOK, "users/form.html", "Editar usuario", FormView{User: u})
}

// Save handles POST /users: create when the form has no id, update otherwise.
func (h *UserTemplateHandler) Save(c echo.Context) error {
	var form UserForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	sess, err := h.session(c)
	if err != nil {
		return err
	}

	u := form.toUser()
	res, err := sess.Dispatch(c.Request().Context(), store.Save(u))
	busy := errors.Is(err, store.ErrInFlight)
	if err != nil && !busy {
		return err
	}

	if res.Redirect != "" {
		return redirect(c, res.Redirect)
	}

	u.Password = ""
	view := FormView{User: u, Errors: sess.Store().State().FormErrors, Busy: busy}

	status := http.StatusOK
	if !view.Errors.Empty() {
		status = http.StatusUnprocessableEntity
	}

	title := "Crear usuario"
	if !u.IsNew() {
		title = "Editar usuario"
	}
	return h.render(c, sess, status, "users/form.html", title, view)
}

// ConfirmDelete handles GET /users/:id/delete.
func (h *UserTemplateHandler) ConfirmDelete(c echo.Context) error {
	id, ok := parseUserID(c)
	if !ok {
		return echo.ErrNotFound
	}

	sess, err := h.session(c)
	if err != nil {
		return err
	}

	u, found := sess.Store().Find(id)
	return h.render(c, sess, http.StatusOK, "users/confirm.html", "Eliminar usuario",
		ConfirmView{ID: id, User: u, Found: found})
}

// Delete handles POST /users/:id/delete. Nothing is dispatched unless the
// user confirmed.
func (h *UserTemplateHandler) Delete(c echo.Context) error {
	id, ok := parseUserID(c)
	if !ok {
		return echo.ErrNotFound
	}

	if c.FormValue("confirm") != "yes" {
		return redirect(c, store.RouteUsers)
	}

	sess, err := h.session(c)
	if err != nil {
		return err
	}

	res, err := sess.Dispatch(c.Request().Context(), store.Remove{ID: id})
	if err != nil && !errors.Is(err, store.ErrInFlight) {
		return err
	}

	if res.Redirect != "" {
		return redirect(c, res.Redirect)
	}
	return redirect(c, store.RouteUsers)
}

func (h *UserTemplateHandler) session(c echo.Context) (*session.Session, error) {
	sess, ok := h.sessions.Get(middleware.GetSessionID(c))
	if !ok {
		return nil, errSessionGone
	}
	return sess, nil
}

// render renders a full page and hands it the session's pending toasts.
func (h *UserTemplateHandler) render(
	c echo.Context,
	sess *session.Session,
	status int,
	name, title string,
	data any,
) error {
	pageData := PageData{
		Title:  title,
		Toasts: sess.TakeToasts(),
		Data:   data,
	}

	if err := c.Render(status, name, pageData); err != nil {
		h.logger.ErrorContext(c.Request().Context(), "template render failed",
			slog.String("template", name),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}
