// Package user defines the User record managed by the CRUD screen.
package user

import "slices"

// User is a managed account record.
//
// An ID <= 0 means the record was never persisted and is created on save;
// an ID > 0 addresses an existing record that is updated on save.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Lastname string `json:"lastname"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// IsNew reports whether the user still has to be created remotely.
func (u User) IsNew() bool {
	return u.ID <= 0
}

// FullName returns "Name Lastname" for display.
func (u User) FullName() string {
	switch {
	case u.Name == "":
		return u.Lastname
	case u.Lastname == "":
		return u.Name
	default:
		return u.Name + " " + u.Lastname
	}
}

// Public returns a copy without the password.
func (u User) Public() User {
	u.Password = ""
	return u
}

// IndexOf returns the position of the user with the given id, or -1.
func IndexOf(users []User, id int64) int {
	return slices.IndexFunc(users, func(u User) bool { return u.ID == id })
}
