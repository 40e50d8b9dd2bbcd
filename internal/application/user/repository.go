package user

import (
	"context"

	"github.com/lllypuk/userdesk/internal/domain/user"
)

// QueryRepository reads users.
// Lookups of unknown users return errs.ErrNotFound.
type QueryRepository interface {
	// FindByID finds a user by id
	FindByID(ctx context.Context, id int64) (user.User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (user.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (user.User, error)

	// FindAll returns every user ordered by id
	FindAll(ctx context.Context) ([]user.User, error)

	// List returns a window of users ordered by id
	List(ctx context.Context, offset, limit int) ([]user.User, error)

	// Count returns the number of users
	Count(ctx context.Context) (int64, error)
}

// CommandRepository changes users.
type CommandRepository interface {
	// Save inserts u when it is new, assigning its id, or replaces it otherwise
	Save(ctx context.Context, u *user.User) error

	// Delete removes the user with id
	Delete(ctx context.Context, id int64) error
}

// Repository combines Command and Query interfaces.
type Repository interface {
	CommandRepository
	QueryRepository
}
