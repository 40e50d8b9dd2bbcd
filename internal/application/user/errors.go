package user

import (
	"errors"
	"fmt"

	"github.com/lllypuk/userdesk/internal/domain/errs"
)

var (
	// ErrUserNotFound is returned for ids that do not exist
	ErrUserNotFound = fmt.Errorf("user %w", errs.ErrNotFound)

	// ErrInvalidPage is returned for negative page numbers
	ErrInvalidPage = fmt.Errorf("page must not be negative: %w", errs.ErrInvalidInput)

	// ErrPasswordHash is returned when a password cannot be hashed
	ErrPasswordHash = errors.New("failed to hash password")
)

// Field messages for uniqueness violations.
const (
	msgUsernameTaken = "username already exists"
	msgEmailTaken    = "email already exists"
)
