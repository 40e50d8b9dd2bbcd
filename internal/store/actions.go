// Package store implements the user list state: a single dispatcher over a
// closed set of actions, a pure reducer and the effects that talk to the
// Users API.
package store

import "github.com/lllypuk/userdesk/internal/domain/user"

// ActionType names an action kind.
type ActionType string

// Request actions are issued by the view, follow-up actions by effects.
const (
	TypeLoad    ActionType = "users/load"
	TypeAdd     ActionType = "users/add"
	TypeUpdate  ActionType = "users/update"
	TypeRemove  ActionType = "users/remove"
	TypeReset   ActionType = "users/reset_form"
	TypeLoaded  ActionType = "users/page_loaded"
	TypeAdded   ActionType = "users/added"
	TypeUpdated ActionType = "users/updated"
	TypeRemoved ActionType = "users/removed"
	TypeErrors  ActionType = "users/set_errors"
)

// Action is the sum type accepted by Store.Dispatch.
// The set is closed: only the types in this file implement it.
type Action interface {
	Type() ActionType
	isAction()
}

// Load requests page Page of users.
type Load struct {
	Page int
}

// Add requests creation of User.
type Add struct {
	User user.User
}

// Update requests an update of User.
type Update struct {
	User user.User
}

// Remove requests deletion of the user with ID.
type Remove struct {
	ID int64
}

// ResetForm clears the form error state before a form is shown.
type ResetForm struct{}

// PageLoaded carries a page returned by the Users API.
type PageLoaded struct {
	Page user.Page
}

// Added carries the user as created by the Users API.
type Added struct {
	User user.User
}

// Updated carries the user as updated by the Users API.
type Updated struct {
	User user.User
}

// Removed carries the id of a deleted user.
type Removed struct {
	ID int64
}

// SetErrors carries field messages of a rejected payload.
type SetErrors struct {
	Errors user.FormErrors
}

func (Load) Type() ActionType       { return TypeLoad }
func (Add) Type() ActionType        { return TypeAdd }
func (Update) Type() ActionType     { return TypeUpdate }
func (Remove) Type() ActionType     { return TypeRemove }
func (ResetForm) Type() ActionType  { return TypeReset }
func (PageLoaded) Type() ActionType { return TypeLoaded }
func (Added) Type() ActionType      { return TypeAdded }
func (Updated) Type() ActionType    { return TypeUpdated }
func (Removed) Type() ActionType    { return TypeRemoved }
func (SetErrors) Type() ActionType  { return TypeErrors }

func (Load) isAction()       {}
func (Add) isAction()        {}
func (Update) isAction()     {}
func (Remove) isAction()     {}
func (ResetForm) isAction()  {}
func (PageLoaded) isAction() {}
func (Added) isAction()      {}
func (Updated) isAction()    {}
func (Removed) isAction()    {}
func (SetErrors) isAction()  {}

// Save returns Update for persisted users and Add for new ones.
func Save(u user.User) Action {
	if u.IsNew() {
		return Add{User: u}
	}
	return Update{User: u}
}
