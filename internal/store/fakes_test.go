package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lllypuk/userdesk/internal/domain/user"
	"github.com/lllypuk/userdesk/internal/store"
)

// fakeRemote records calls and returns canned results.
// When gate is set, every call blocks until gate is closed.
type fakeRemote struct {
	gate    chan struct{}
	entered chan struct{}

	page    user.Page
	nextID  int64
	err     error
	calls   atomic.Int32
	deleted []int64
	mu      sync.Mutex
}

func (f *fakeRemote) wait(ctx context.Context) error {
	f.calls.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeRemote) FindAll(ctx context.Context) ([]user.User, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.page.Users, f.err
}

func (f *fakeRemote) FindAllPageable(ctx context.Context, _ int) (user.Page, error) {
	if err := f.wait(ctx); err != nil {
		return user.Page{}, err
	}
	return f.page, f.err
}

func (f *fakeRemote) Create(ctx context.Context, u user.User) (user.User, error) {
	if err := f.wait(ctx); err != nil {
		return user.User{}, err
	}
	if f.err != nil {
		return user.User{}, f.err
	}
	u.ID = f.nextID
	return u, nil
}

func (f *fakeRemote) Update(ctx context.Context, u user.User) (user.User, error) {
	if err := f.wait(ctx); err != nil {
		return user.User{}, err
	}
	if f.err != nil {
		return user.User{}, f.err
	}
	return u, nil
}

func (f *fakeRemote) Delete(ctx context.Context, id int64) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()
	return nil
}

type recorder struct {
	mu     sync.Mutex
	routes []string
	toasts []store.Toast
}

func (r *recorder) Navigate(_ context.Context, route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func (r *recorder) Notify(_ context.Context, t store.Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

type countingMetrics struct {
	mu         sync.Mutex
	dispatched map[store.ActionType]int
	dropped    map[store.ActionType]int
	outcomes   map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		dispatched: make(map[store.ActionType]int),
		dropped:    make(map[store.ActionType]int),
		outcomes:   make(map[string]int),
	}
}

func (m *countingMetrics) ActionDispatched(t store.ActionType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatched[t]++
}

func (m *countingMetrics) ActionDropped(t store.ActionType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[t]++
}

func (m *countingMetrics) EffectCompleted(_ store.ActionType, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}
