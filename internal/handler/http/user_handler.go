package httphandler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/userdesk/internal/domain/user"
	"github.com/lllypuk/userdesk/internal/infrastructure/httpserver"
)

// UserService defines the user operations served by the Users API.
// Declared on the consumer side per project guidelines.
type UserService interface {
	FindAll(ctx context.Context) ([]user.User, error)
	FindAllPageable(ctx context.Context, page int) (user.Page, error)
	FindByID(ctx context.Context, id int64) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	Update(ctx context.Context, u user.User) (user.User, error)
	Delete(ctx context.Context, id int64) error
}

// UserRequest is the JSON body of create and update requests.
type UserRequest struct {
	Name     string `json:"name"`
	Lastname string `json:"lastname"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r UserRequest) toUser(id int64) user.User {
	return user.User{
		ID:       id,
		Name:     r.Name,
		Lastname: r.Lastname,
		Email:    r.Email,
		Username: r.Username,
		Password: r.Password,
	}
}

// UserHandler serves the Users API.
//
// Successful responses carry the bare resource and 400 responses carry
// the bare field map, which is what usersapi.Client expects. Every other
// failure uses the standard error envelope.
type UserHandler struct {
	userService UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// RegisterRoutes registers user routes with the router.
func (h *UserHandler) RegisterRoutes(r *httpserver.Router) {
	r.API().GET("/users", h.List)
	r.API().GET("/users/page/:page", h.Page)
	r.API().GET("/users/:id", h.Get)
	r.API().POST("/users", h.Create)
	r.API().PUT("/users/:id", h.Update)
	r.API().DELETE("/users/:id", h.Delete)
}

// List handles GET /api/users.
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.userService.FindAll(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	if users == nil {
		users = []user.User{}
	}
	return c.JSON(http.StatusOK, users)
}

// Page handles GET /api/users/page/:page.
func (h *UserHandler) Page(c echo.Context) error {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_PAGE", "invalid page number")
	}

	p, err := h.userService.FindAllPageable(c.Request().Context(), page)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, p.Response())
}

// Get handles GET /api/users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := parseUserID(c)
	if !ok {
		return respondInvalidID(c)
	}

	u, err := h.userService.FindByID(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Create handles POST /api/users.
func (h *UserHandler) Create(c echo.Context) error {
	var req UserRequest
	if err := c.Bind(&req); err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}

	created, err := h.userService.Create(c.Request().Context(), req.toUser(0))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// Update handles PUT /api/users/:id.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := parseUserID(c)
	if !ok {
		return respondInvalidID(c)
	}

	var req UserRequest
	if err := c.Bind(&req); err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}

	updated, err := h.userService.Update(c.Request().Context(), req.toUser(id))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /api/users/:id.
func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := parseUserID(c)
	if !ok {
		return respondInvalidID(c)
	}

	if err := h.userService.Delete(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) fail(c echo.Context, err error) error {
	var ve *user.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, ve.Errors)
	}
	return httpserver.RespondError(c, err)
}

func parseUserID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func respondInvalidID(c echo.Context) error {
	return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_USER_ID", "invalid user id")
}
