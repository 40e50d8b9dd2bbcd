// Package usersapi is the HTTP client for the remote Users API.
package usersapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lllypuk/userdesk/internal/domain/user"
)

const defaultHTTPTimeout = 30 * time.Second

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// Config contains configuration for Client.
type Config struct {
	// BaseURL is the API root, e.g. http://localhost:8080/api.
	BaseURL string

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// Client talks to the Users API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Users API client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// FindAll returns every user.
func (c *Client) FindAll(ctx context.Context) ([]user.User, error) {
	var users []user.User
	if err := c.do(ctx, http.MethodGet, "/users", nil, http.StatusOK, &users); err != nil {
		return nil, fmt.Errorf("find all users: %w", err)
	}
	return users, nil
}

// FindAllPageable returns the zero-based page of users.
func (c *Client) FindAllPageable(ctx context.Context, page int) (user.Page, error) {
	var resp user.PageResponse
	path := "/users/page/" + strconv.Itoa(page)
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &resp); err != nil {
		return user.Page{}, fmt.Errorf("find users page %d: %w", page, err)
	}
	return resp.Page(), nil
}

// Create persists a new user and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, u user.User) (user.User, error) {
	var created user.User
	if err := c.do(ctx, http.MethodPost, "/users", u, http.StatusCreated, &created); err != nil {
		return user.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// Update replaces the user with u.ID.
func (c *Client) Update(ctx context.Context, u user.User) (user.User, error) {
	if u.IsNew() {
		return user.User{}, ErrInvalidID
	}

	var updated user.User
	path := "/users/" + strconv.FormatInt(u.ID, 10)
	if err := c.do(ctx, http.MethodPut, path, u, http.StatusOK, &updated); err != nil {
		return user.User{}, fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return updated, nil
}

// Delete removes the user with id.
func (c *Client) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}

	path := "/users/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodDelete, path, nil, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == want || (want == http.StatusNoContent && resp.StatusCode == http.StatusOK):
	case resp.StatusCode == http.StatusBadRequest:
		return decodeValidation(resp.Body)
	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeValidation reads a 400 body of field name to message.
func decodeValidation(body io.Reader) error {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return &APIError{StatusCode: http.StatusBadRequest, Body: string(raw)}
	}
	return user.NewValidationError(fields)
}
