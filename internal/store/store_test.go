package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/userdesk/internal/domain/user"
	"github.com/lllypuk/userdesk/internal/store"
)

func newStore(remote store.Remote, opts ...store.EffectOption) (*store.Store, *recorder, *countingMetrics) {
	rec := &recorder{}
	metrics := newCountingMetrics()
	opts = append([]store.EffectOption{
		store.WithNavigator(rec),
		store.WithNotifier(rec),
		store.WithEffectMetrics(metrics),
		store.WithGuardKey("session-1"),
	}, opts...)

	s := store.New(
		store.WithState(seeded()),
		store.WithMetrics(metrics),
		store.WithEffects(store.NewUserEffects(remote, opts...)),
	)
	return s, rec, metrics
}

func TestStore_Dispatch(t *testing.T) {
	t.Run("nil action", func(t *testing.T) {
		s := store.New()

		err := s.Dispatch(context.Background(), nil)

		assert.ErrorIs(t, err, store.ErrNilAction)
	})

	t.Run("load replaces the page", func(t *testing.T) {
		remote := &fakeRemote{page: user.Page{
			Users:     []user.User{{ID: 6, Name: "Ken"}},
			Paginator: user.NewPaginator(1, 5, 6, 1),
		}}
		s, rec, _ := newStore(remote)

		require.NoError(t, s.Dispatch(context.Background(), store.Load{Page: 1}))

		st := s.State()
		assert.Equal(t, remote.page.Users, st.Users)
		assert.Equal(t, 1, st.Paginator.Number)
		assert.Empty(t, rec.routes)
		assert.Empty(t, rec.toasts)
	})

	t.Run("create appends and navigates with a toast", func(t *testing.T) {
		remote := &fakeRemote{nextID: 7}
		s, rec, _ := newStore(remote)
		ana := user.User{Name: "Ana", Lastname: "Diaz", Email: "ana@x.io", Username: "anad", Password: "pw12"}

		require.NoError(t, s.Dispatch(context.Background(), store.Save(ana)))

		st := s.State()
		require.Len(t, st.Users, 4)
		created, ok := s.Find(7)
		require.True(t, ok)
		assert.Equal(t, "Ana", created.Name)
		assert.Empty(t, created.Password)
		assert.Equal(t, []string{store.RouteUsers}, rec.routes)
		assert.Equal(t, []store.Toast{store.ToastCreated}, rec.toasts)
	})

	t.Run("rejected update sets form errors without navigating", func(t *testing.T) {
		remote := &fakeRemote{err: user.NewValidationError(user.FormErrors{"name": "required"})}
		s, rec, metrics := newStore(remote)
		before := s.State()

		err := s.Dispatch(context.Background(), store.Update{User: user.User{ID: 2}})

		require.NoError(t, err)
		st := s.State()
		assert.Equal(t, before.Users, st.Users)
		assert.Equal(t, "required", st.FormErrors.Get("name"))
		assert.Empty(t, rec.routes)
		assert.Empty(t, rec.toasts)
		assert.Equal(t, 1, metrics.outcomes[store.OutcomeValidation])
	})

	t.Run("update replaces the entry and shows the update toast", func(t *testing.T) {
		s, rec, _ := newStore(&fakeRemote{})

		require.NoError(t, s.Dispatch(context.Background(), store.Update{User: user.User{ID: 1, Name: "Augusta"}}))

		u, ok := s.Find(1)
		require.True(t, ok)
		assert.Equal(t, "Augusta", u.Name)
		assert.Len(t, s.State().Users, 3)
		assert.Equal(t, []store.Toast{store.ToastUpdated}, rec.toasts)
	})

	t.Run("remove deletes one entry", func(t *testing.T) {
		remote := &fakeRemote{}
		s, rec, _ := newStore(remote)

		require.NoError(t, s.Dispatch(context.Background(), store.Remove{ID: 3}))

		assert.Len(t, s.State().Users, 2)
		assert.Equal(t, []int64{3}, remote.deleted)
		assert.Equal(t, []store.Toast{store.ToastRemoved}, rec.toasts)
		assert.Equal(t, []string{store.RouteUsers}, rec.routes)
	})

	t.Run("unclassified failure is absorbed", func(t *testing.T) {
		remote := &fakeRemote{err: errors.New("connection refused")}
		s, rec, metrics := newStore(remote)
		before := s.State()

		err := s.Dispatch(context.Background(), store.Add{User: user.User{Name: "x"}})

		require.NoError(t, err)
		assert.Equal(t, before, s.State())
		assert.Empty(t, rec.routes)
		assert.Equal(t, 1, metrics.outcomes[store.OutcomeFailed])
	})

	t.Run("load failure does not become form errors", func(t *testing.T) {
		remote := &fakeRemote{err: user.NewValidationError(user.FormErrors{"page": "invalid"})}
		s, _, _ := newStore(remote)

		require.NoError(t, s.Dispatch(context.Background(), store.Load{Page: -1}))

		assert.True(t, s.State().FormErrors.Empty())
	})
}

func TestStore_ConcurrentLoadsAreExhausted(t *testing.T) {
	remote := &fakeRemote{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 2),
		page:    user.Page{Users: []user.User{{ID: 11}}, Paginator: user.NewPaginator(2, 5, 11, 1)},
	}
	s, _, metrics := newStore(remote)

	var reductions int
	var mu sync.Mutex
	unsubscribe := s.Subscribe(func(_ store.State, a store.Action) {
		if a.Type() == store.TypeLoaded {
			mu.Lock()
			reductions++
			mu.Unlock()
		}
	})
	defer unsubscribe()

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- s.Dispatch(context.Background(), store.Load{Page: 2})
	}()

	select {
	case <-remote.entered:
	case <-time.After(time.Second):
		t.Fatal("first load never reached the remote")
	}

	err := s.Dispatch(context.Background(), store.Load{Page: 2})
	assert.ErrorIs(t, err, store.ErrInFlight)

	close(remote.gate)
	select {
	case err := <-firstDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("first load did not settle")
	}

	assert.Equal(t, int32(1), remote.calls.Load())
	mu.Lock()
	assert.Equal(t, 1, reductions)
	mu.Unlock()
	assert.Equal(t, 1, metrics.dropped[store.TypeLoad])

	// Idle again once settled.
	require.NoError(t, s.Dispatch(context.Background(), store.Load{Page: 2}))
	assert.Equal(t, int32(2), remote.calls.Load())
}

func TestStore_DifferentTypesRunConcurrently(t *testing.T) {
	remote := &fakeRemote{gate: make(chan struct{}), entered: make(chan struct{}, 2), nextID: 8}
	s, _, _ := newStore(remote)

	done := make(chan error, 2)
	go func() { done <- s.Dispatch(context.Background(), store.Load{Page: 0}) }()
	go func() { done <- s.Dispatch(context.Background(), store.Add{User: user.User{Name: "Bo"}}) }()

	for range 2 {
		select {
		case <-remote.entered:
		case <-time.After(time.Second):
			t.Fatal("both calls should be in flight")
		}
	}
	close(remote.gate)

	for range 2 {
		require.NoError(t, <-done)
	}
}

func TestStore_RemoteTimeoutReturnsToIdle(t *testing.T) {
	remote := &fakeRemote{gate: make(chan struct{})}
	s, _, metrics := newStore(remote, store.WithRemoteTimeout(20*time.Millisecond))

	require.NoError(t, s.Dispatch(context.Background(), store.Load{Page: 0}))
	assert.Equal(t, 1, metrics.outcomes[store.OutcomeFailed])

	require.NoError(t, s.Dispatch(context.Background(), store.Load{Page: 0}))
	assert.Equal(t, int32(2), remote.calls.Load())
}

func TestStore_CanceledRequestStillSettles(t *testing.T) {
	remote := &fakeRemote{nextID: 5}
	s, _, _ := newStore(remote)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.Dispatch(ctx, store.Add{User: user.User{Name: "Late"}}))

	_, ok := s.Find(5)
	assert.True(t, ok)
}

func TestStore_Subscribe(t *testing.T) {
	s := store.New()
	var seen []store.ActionType
	unsubscribe := s.Subscribe(func(_ store.State, a store.Action) {
		seen = append(seen, a.Type())
	})

	require.NoError(t, s.Dispatch(context.Background(), store.ResetForm{}))
	unsubscribe()
	require.NoError(t, s.Dispatch(context.Background(), store.ResetForm{}))

	assert.Equal(t, []store.ActionType{store.TypeReset}, seen)
}
