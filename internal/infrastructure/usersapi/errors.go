package usersapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidID is returned for update and delete calls without a persisted id.
var ErrInvalidID = errors.New("user id must be positive")

// APIError is a non-2xx response that is not a validation failure.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("users api responded with status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the users API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsServerError reports whether err is a 5xx from the users API.
func IsServerError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusInternalServerError
}
