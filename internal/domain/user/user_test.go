package user_test

import (
	"encoding/json"
	"testing"

	"github.com/lllypuk/userdesk/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_IsNew(t *testing.T) {
	assert.True(t, user.User{}.IsNew())
	assert.True(t, user.User{ID: -1}.IsNew())
	assert.False(t, user.User{ID: 7}.IsNew())
}

func TestUser_FullName(t *testing.T) {
	assert.Equal(t, "Ana Gomez", user.User{Name: "Ana", Lastname: "Gomez"}.FullName())
	assert.Equal(t, "Ana", user.User{Name: "Ana"}.FullName())
	assert.Equal(t, "Gomez", user.User{Lastname: "Gomez"}.FullName())
}

func TestUser_Public(t *testing.T) {
	u := user.User{ID: 1, Username: "ana1", Password: "secret"}

	pub := u.Public()

	assert.Empty(t, pub.Password)
	assert.Equal(t, "secret", u.Password)
}

func TestIndexOf(t *testing.T) {
	users := []user.User{{ID: 3}, {ID: 7}}

	assert.Equal(t, 1, user.IndexOf(users, 7))
	assert.Equal(t, -1, user.IndexOf(users, 9))
	assert.Equal(t, -1, user.IndexOf(nil, 1))
}

func TestNewPaginator(t *testing.T) {
	tests := []struct {
		name      string
		number    int
		size      int
		total     int64
		wantPages int
		wantFirst bool
		wantLast  bool
	}{
		{"first of three", 0, 5, 12, 3, true, false},
		{"middle page", 1, 5, 12, 3, false, false},
		{"last page", 2, 5, 12, 3, false, true},
		{"empty collection", 0, 5, 0, 0, true, true},
		{"default size", 0, 0, 6, 2, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := user.NewPaginator(tt.number, tt.size, tt.total, 0)

			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantFirst, p.First)
			assert.Equal(t, tt.wantLast, p.Last)
			assert.Len(t, p.Pages(), tt.wantPages)
		})
	}
}

func TestPaginator_Navigation(t *testing.T) {
	p := user.NewPaginator(1, 5, 12, 5)

	assert.True(t, p.HasPrevious())
	assert.True(t, p.HasNext())

	last := user.NewPaginator(2, 5, 12, 2)
	assert.False(t, last.HasNext())
}

func TestValidationError(t *testing.T) {
	err := user.NewValidationError(user.FormErrors{"name": "required", "email": "invalid"})

	assert.Equal(t, "validation failed: email: invalid; name: required", err.Error())
	assert.Equal(t, "required", err.Errors.Get("name"))
	assert.Empty(t, (&user.ValidationError{}).Errors)
	assert.Equal(t, "validation failed", (&user.ValidationError{}).Error())
}

func TestFormErrors_Clone(t *testing.T) {
	orig := user.FormErrors{"name": "required"}
	clone := orig.Clone()
	clone["name"] = "changed"

	assert.Equal(t, "required", orig["name"])
	assert.Nil(t, user.FormErrors(nil).Clone())
	assert.True(t, user.FormErrors{}.Empty())
}

func TestPage_Response(t *testing.T) {
	p := user.Page{Paginator: user.NewPaginator(0, 5, 0, 0)}

	raw, err := json.Marshal(p.Response())
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, []any{}, body["content"])
	assert.Equal(t, true, body["first"])
	assert.NotContains(t, body, "Paginator")

	withUsers := user.Page{Users: []user.User{{ID: 7, Name: "Ana"}}, Paginator: user.NewPaginator(1, 5, 6, 1)}
	assert.Equal(t, withUsers, withUsers.Response().Page())
}
