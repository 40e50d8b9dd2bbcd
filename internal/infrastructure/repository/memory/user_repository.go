// Package memory holds in-process repositories used in mock mode and tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/lllypuk/userdesk/internal/domain/errs"
	"github.com/lllypuk/userdesk/internal/domain/user"
)

// UserRepository keeps users in a map guarded by a RWMutex.
type UserRepository struct {
	mu     sync.RWMutex
	users  map[int64]user.User
	nextID int64
}

// NewUserRepository creates a repository seeded with users.
// Seeded users keep their ids; new ids continue after the highest one.
func NewUserRepository(seed ...user.User) *UserRepository {
	r := &UserRepository{users: make(map[int64]user.User, len(seed))}
	for _, u := range seed {
		if u.IsNew() {
			r.nextID++
			u.ID = r.nextID
		}
		r.users[u.ID] = u
		r.nextID = max(r.nextID, u.ID)
	}
	return r
}

// FindByID finds a user by id.
func (r *UserRepository) FindByID(_ context.Context, id int64) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return user.User{}, errs.ErrNotFound
	}
	return u, nil
}

// FindByUsername finds a user by username.
func (r *UserRepository) FindByUsername(_ context.Context, username string) (user.User, error) {
	return r.findBy(func(u user.User) bool { return u.Username == username })
}

// FindByEmail finds a user by email.
func (r *UserRepository) FindByEmail(_ context.Context, email string) (user.User, error) {
	return r.findBy(func(u user.User) bool { return u.Email == email })
}

// FindAll returns every user ordered by id.
func (r *UserRepository) FindAll(_ context.Context) ([]user.User, error) {
	return r.sorted(), nil
}

// List returns a window of users ordered by id.
func (r *UserRepository) List(_ context.Context, offset, limit int) ([]user.User, error) {
	all := r.sorted()
	if offset >= len(all) {
		return []user.User{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

// Count returns the number of users.
func (r *UserRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

// Save inserts or replaces u.
func (r *UserRepository) Save(_ context.Context, u *user.User) error {
	if u == nil {
		return errs.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := u.ID
	if u.IsNew() {
		id = r.nextID + 1
	} else if _, ok := r.users[id]; !ok {
		return errs.ErrNotFound
	}

	for otherID, other := range r.users {
		if otherID != id && (other.Username == u.Username || other.Email == u.Email) {
			return errs.ErrAlreadyExists
		}
	}

	if u.IsNew() {
		r.nextID = id
		u.ID = id
	}
	r.users[id] = *u
	return nil
}

// Delete removes the user with id.
func (r *UserRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepository) findBy(match func(user.User) bool) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return user.User{}, errs.ErrNotFound
}

func (r *UserRepository) sorted() []user.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b user.User) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
