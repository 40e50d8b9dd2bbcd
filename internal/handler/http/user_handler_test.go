package httphandler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/userdesk/internal/domain/user"
	httphandler "github.com/lllypuk/userdesk/internal/handler/http"
	"github.com/lllypuk/userdesk/internal/infrastructure/httpserver"
	"github.com/lllypuk/userdesk/internal/infrastructure/usersapi"
)

func newAPI(t *testing.T, seed ...user.User) *echo.Echo {
	t.Helper()

	e := echo.New()
	router := httpserver.NewRouter(e, newRouterConfig())
	router.RegisterAll(httphandler.NewUserHandler(newService(seed...)))
	return e
}

func call(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httpserver.Response {
	t.Helper()
	var resp httpserver.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUserHandler_List(t *testing.T) {
	t.Run("returns every user without passwords", func(t *testing.T) {
		e := newAPI(t, seedUsers(3)...)

		rec := call(e, http.MethodGet, "/api/users", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var users []user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
		require.Len(t, users, 3)
		assert.Equal(t, "user0001", users[0].Username)
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("empty list is an empty array", func(t *testing.T) {
		rec := call(newAPI(t), http.MethodGet, "/api/users", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestUserHandler_Page(t *testing.T) {
	e := newAPI(t, seedUsers(7)...)

	t.Run("second page", func(t *testing.T) {
		rec := call(e, http.MethodGet, "/api/users/page/1", "")

		require.Equal(t, http.StatusOK, rec.Code)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
		for _, key := range []string{"content", "number", "size", "totalElements", "totalPages", "numberOfElements", "first", "last"} {
			assert.Contains(t, raw, key)
		}

		var page user.PageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Len(t, page.Content, 2)
		assert.Equal(t, 1, page.Number)
		assert.Equal(t, 5, page.Size)
		assert.Equal(t, int64(7), page.TotalElements)
		assert.Equal(t, 2, page.TotalPages)
		assert.False(t, page.First)
		assert.True(t, page.Last)
	})

	t.Run("past the end is empty", func(t *testing.T) {
		rec := call(e, http.MethodGet, "/api/users/page/9", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"content":[]`)
	})

	t.Run("non numeric page", func(t *testing.T) {
		rec := call(e, http.MethodGet, "/api/users/page/abc", "")

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_PAGE", decodeEnvelope(t, rec).Error.Code)
	})

	t.Run("negative page", func(t *testing.T) {
		rec := call(e, http.MethodGet, "/api/users/page/-1", "")

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_INPUT", decodeEnvelope(t, rec).Error.Code)
	})
}

func TestUserHandler_Get(t *testing.T) {
	e := newAPI(t, seedUsers(2)...)

	rec := call(e, http.MethodGet, "/api/users/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var u user.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	assert.Equal(t, int64(2), u.ID)
	assert.Empty(t, u.Password)

	rec = call(e, http.MethodGet, "/api/users/42", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error.Code)

	rec = call(e, http.MethodGet, "/api/users/0", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_USER_ID", decodeEnvelope(t, rec).Error.Code)
}

func TestUserHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantCode   int
		wantFields map[string]string
	}{
		{
			name:     "valid user",
			body:     `{"name":"Ana","lastname":"Pérez","email":"ana@example.com","username":"anaperez","password":"secret123"}`,
			wantCode: http.StatusCreated,
		},
		{
			name:     "missing fields",
			body:     `{"email":"nope","username":"ab"}`,
			wantCode: http.StatusBadRequest,
			wantFields: map[string]string{
				"name":     "name is required",
				"lastname": "lastname is required",
				"email":    "email must be a valid email address",
				"username": "username must be at least 4 characters long",
				"password": "password is required",
			},
		},
		{
			name:     "duplicate username",
			body:     `{"name":"Ana","lastname":"Pérez","email":"other@example.com","username":"user0001","password":"secret123"}`,
			wantCode: http.StatusBadRequest,
			wantFields: map[string]string{
				"username": "username already exists",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newAPI(t, seedUsers(1)...)

			rec := call(e, http.MethodPost, "/api/users", tt.body)

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantFields != nil {
				var fields map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
				assert.Equal(t, tt.wantFields, fields)
				return
			}

			var created user.User
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
			assert.Equal(t, int64(2), created.ID)
			assert.Equal(t, "Ana", created.Name)
			assert.NotContains(t, rec.Body.String(), "password")
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		rec := call(newAPI(t), http.MethodPost, "/api/users", `{"name":`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_REQUEST", decodeEnvelope(t, rec).Error.Code)
	})
}

func TestUserHandler_Update(t *testing.T) {
	body := `{"name":"Renamed","lastname":"Last1","email":"user1@example.com","username":"user0001"}`

	t.Run("replaces the user", func(t *testing.T) {
		e := newAPI(t, seedUsers(2)...)

		rec := call(e, http.MethodPut, "/api/users/1", body)

		require.Equal(t, http.StatusOK, rec.Code)
		var u user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
		assert.Equal(t, int64(1), u.ID)
		assert.Equal(t, "Renamed", u.Name)

		rec = call(e, http.MethodGet, "/api/users/1", "")
		assert.Contains(t, rec.Body.String(), "Renamed")
	})

	t.Run("rejects invalid fields", func(t *testing.T) {
		rec := call(newAPI(t, seedUsers(1)...), http.MethodPut, "/api/users/1", `{"lastname":"x","email":"user1@example.com","username":"user0001"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"name":"name is required"}`, rec.Body.String())
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := call(newAPI(t), http.MethodPut, "/api/users/99", body)

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := call(newAPI(t), http.MethodPut, "/api/users/abc", body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_USER_ID", decodeEnvelope(t, rec).Error.Code)
	})
}

func TestUserHandler_Delete(t *testing.T) {
	e := newAPI(t, seedUsers(2)...)

	rec := call(e, http.MethodDelete, "/api/users/1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = call(e, http.MethodDelete, "/api/users/1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(e, http.MethodGet, "/api/users", "")
	var users []user.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 1)
}

// The Users API client and the handler must agree on the wire contract.
func TestUserHandler_ClientContract(t *testing.T) {
	server := httptest.NewServer(newAPI(t, seedUsers(6)...))
	defer server.Close()

	client := usersapi.NewClient(usersapi.Config{BaseURL: server.URL + "/api"})
	ctx := context.Background()

	page, err := client.FindAllPageable(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, page.Users, 1)
	assert.Equal(t, int64(6), page.Paginator.TotalElements)

	created, err := client.Create(ctx, user.User{
		Name:     "Ana",
		Lastname: "Pérez",
		Email:    "ana@example.com",
		Username: "anaperez",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)

	_, err = client.Update(ctx, user.User{ID: 7, Lastname: "Pérez", Email: "ana@example.com", Username: "anaperez"})
	var ve *user.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name is required", ve.Errors.Get("name"))

	require.NoError(t, client.Delete(ctx, 7))

	err = client.Delete(ctx, 7)
	require.Error(t, err)
	assert.True(t, usersapi.IsNotFound(err))

	all, err := client.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)
}
