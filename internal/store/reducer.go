package store

import (
	"slices"

	"github.com/lllypuk/userdesk/internal/domain/user"
)

// State is the user list as seen by one browser session.
type State struct {
	Users      []user.User
	Paginator  user.Paginator
	FormErrors user.FormErrors
}

// Clone returns a deep copy that shares nothing with s.
func (s State) Clone() State {
	return State{
		Users:      slices.Clone(s.Users),
		Paginator:  s.Paginator,
		FormErrors: s.FormErrors.Clone(),
	}
}

// Find returns the user with id from the current collection.
func (s State) Find(id int64) (user.User, bool) {
	i := user.IndexOf(s.Users, id)
	if i < 0 {
		return user.User{}, false
	}
	return s.Users[i], true
}

// Reduce computes the state that follows a. It never modifies s.
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case PageLoaded:
		s.Users = slices.Clone(act.Page.Users)
		s.Paginator = act.Page.Paginator
	case Added:
		// A user that already carries a known id replaces its entry.
		s.Users = upsert(s.Users, act.User)
		s.FormErrors = nil
	case Updated:
		s.Users = replace(s.Users, act.User)
		s.FormErrors = nil
	case Removed:
		s.Users = slices.DeleteFunc(slices.Clone(s.Users), func(u user.User) bool { return u.ID == act.ID })
	case SetErrors:
		s.FormErrors = act.Errors.Clone()
	case ResetForm:
		s.FormErrors = nil
	}
	return s
}

func upsert(users []user.User, u user.User) []user.User {
	if i := user.IndexOf(users, u.ID); i >= 0 {
		return replaceAt(users, i, u)
	}
	out := make([]user.User, 0, len(users)+1)
	out = append(out, users...)
	return append(out, u.Public())
}

func replace(users []user.User, u user.User) []user.User {
	i := user.IndexOf(users, u.ID)
	if i < 0 {
		return users
	}
	return replaceAt(users, i, u)
}

func replaceAt(users []user.User, i int, u user.User) []user.User {
	out := slices.Clone(users)
	out[i] = u.Public()
	return out
}
