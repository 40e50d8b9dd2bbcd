package user

import "github.com/lllypuk/userdesk/internal/domain/user"

// CreateUserCommand is the payload of a new user.
type CreateUserCommand struct {
	Name     string `json:"name"     validate:"required"`
	Lastname string `json:"lastname" validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Username string `json:"username" validate:"required,min=4,max=12"`
	Password string `json:"password" validate:"required,max=72"`
}

// UpdateUserCommand is the payload of an existing user. An empty password
// keeps the stored one.
type UpdateUserCommand struct {
	ID       int64  `json:"id"       validate:"gt=0"`
	Name     string `json:"name"     validate:"required"`
	Lastname string `json:"lastname" validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Username string `json:"username" validate:"required,min=4,max=12"`
	Password string `json:"password" validate:"omitempty,max=72"`
}

// NewCreateUserCommand builds a create command from u.
func NewCreateUserCommand(u user.User) CreateUserCommand {
	return CreateUserCommand{
		Name:     u.Name,
		Lastname: u.Lastname,
		Email:    u.Email,
		Username: u.Username,
		Password: u.Password,
	}
}

// NewUpdateUserCommand builds an update command from u.
func NewUpdateUserCommand(u user.User) UpdateUserCommand {
	return UpdateUserCommand{
		ID:       u.ID,
		Name:     u.Name,
		Lastname: u.Lastname,
		Email:    u.Email,
		Username: u.Username,
		Password: u.Password,
	}
}
