package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lllypuk/userdesk/internal/domain/user"
	"github.com/lllypuk/userdesk/internal/store"
)

func seeded() store.State {
	return store.State{
		Users: []user.User{
			{ID: 1, Name: "Ada", Lastname: "Lovelace", Email: "ada@example.com", Username: "ada1"},
			{ID: 2, Name: "Alan", Lastname: "Turing", Email: "alan@example.com", Username: "alan"},
			{ID: 3, Name: "Grace", Lastname: "Hopper", Email: "grace@example.com", Username: "grace"},
		},
		Paginator: user.NewPaginator(0, 5, 3, 3),
	}
}

func TestReduce_PageLoaded(t *testing.T) {
	page := user.Page{
		Users:     []user.User{{ID: 9, Name: "Linus"}},
		Paginator: user.NewPaginator(1, 5, 6, 1),
	}

	next := store.Reduce(seeded(), store.PageLoaded{Page: page})

	assert.Equal(t, page.Users, next.Users)
	assert.Equal(t, page.Paginator, next.Paginator)
}

func TestReduce_Added(t *testing.T) {
	t.Run("appends a new user", func(t *testing.T) {
		prev := seeded()
		prev.FormErrors = user.FormErrors{"name": "required"}

		next := store.Reduce(prev, store.Added{User: user.User{ID: 7, Name: "Ana", Password: "secret"}})

		assert.Len(t, next.Users, len(prev.Users)+1)
		assert.Equal(t, int64(7), next.Users[3].ID)
		assert.Empty(t, next.Users[3].Password)
		assert.Nil(t, next.FormErrors)
		assert.Len(t, prev.Users, 3, "previous state must not change")
	})

	t.Run("replaces a user with a known id", func(t *testing.T) {
		prev := seeded()

		next := store.Reduce(prev, store.Added{User: user.User{ID: 2, Name: "Alan M."}})

		assert.Len(t, next.Users, 3)
		assert.Equal(t, "Alan M.", next.Users[1].Name)
		assert.Equal(t, "Alan", prev.Users[1].Name)
	})
}

func TestReduce_Updated(t *testing.T) {
	t.Run("replaces only the matching entry", func(t *testing.T) {
		prev := seeded()
		changed := user.User{ID: 2, Name: "Alan", Lastname: "M. Turing", Email: "alan@example.com", Username: "alan"}

		next := store.Reduce(prev, store.Updated{User: changed})

		assert.Len(t, next.Users, len(prev.Users))
		assert.Equal(t, changed, next.Users[1])
		assert.Equal(t, prev.Users[0], next.Users[0])
		assert.Equal(t, prev.Users[2], next.Users[2])
	})

	t.Run("unknown id leaves the collection as is", func(t *testing.T) {
		prev := seeded()

		next := store.Reduce(prev, store.Updated{User: user.User{ID: 42}})

		assert.Equal(t, prev.Users, next.Users)
	})
}

func TestReduce_Removed(t *testing.T) {
	t.Run("removes exactly one entry", func(t *testing.T) {
		prev := seeded()

		next := store.Reduce(prev, store.Removed{ID: 2})

		assert.Len(t, next.Users, 2)
		_, ok := next.Find(2)
		assert.False(t, ok)
		assert.Len(t, prev.Users, 3)
	})

	t.Run("absent id is a no-op", func(t *testing.T) {
		prev := seeded()

		next := store.Reduce(prev, store.Removed{ID: 99})

		assert.Equal(t, prev.Users, next.Users)
	})
}

func TestReduce_FormErrors(t *testing.T) {
	prev := seeded()
	errs := user.FormErrors{"name": "required"}

	next := store.Reduce(prev, store.SetErrors{Errors: errs})
	assert.Equal(t, errs, next.FormErrors)
	assert.Equal(t, prev.Users, next.Users)

	errs["email"] = "mutated"
	assert.NotContains(t, next.FormErrors, "email")

	cleared := store.Reduce(next, store.ResetForm{})
	assert.Nil(t, cleared.FormErrors)
}

func TestReduce_RequestActionsDoNotChangeState(t *testing.T) {
	prev := seeded()

	for _, a := range []store.Action{
		store.Load{Page: 1},
		store.Add{User: user.User{Name: "x"}},
		store.Update{User: user.User{ID: 1, Name: "x"}},
		store.Remove{ID: 1},
	} {
		assert.Equal(t, prev, store.Reduce(prev, a), string(a.Type()))
	}
}

func TestSave(t *testing.T) {
	assert.Equal(t, store.TypeAdd, store.Save(user.User{}).Type())
	assert.Equal(t, store.TypeUpdate, store.Save(user.User{ID: 3}).Type())
}
