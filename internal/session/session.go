// Package session keeps one user list store per browser session.
package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/lllypuk/userdesk/internal/store"
)

// Session is the server-side state of one browser.
// It is the Navigator and Notifier of its store.
type Session struct {
	id    string
	store *store.Store
	push  Broadcaster

	mu       sync.Mutex
	toasts   []store.Toast
	lastSeen time.Time
	detach   func()
}

// Result is what a dispatch asked the browser to do.
type Result struct {
	// Redirect is the route to navigate to, empty to stay on the page.
	Redirect string
}

type resultKey struct{}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Store returns the session's store.
func (s *Session) Store() *store.Store {
	return s.store
}

// Dispatch dispatches a on the session's store and reports the navigation
// requested while handling it.
func (s *Session) Dispatch(ctx context.Context, a store.Action) (Result, error) {
	res := &Result{}
	err := s.store.Dispatch(context.WithValue(ctx, resultKey{}, res), a)
	return *res, err
}

// Navigate implements store.Navigator.
func (s *Session) Navigate(ctx context.Context, route string) {
	if res, ok := ctx.Value(resultKey{}).(*Result); ok {
		res.Redirect = route
	}
}

// Notify implements store.Notifier. The toast is queued for the next page.
// It is pushed to the session's open tabs only when the dispatch stays on
// the page: a redirecting tab shows the queued copy once it lands.
func (s *Session) Notify(ctx context.Context, t store.Toast) {
	s.mu.Lock()
	s.toasts = append(s.toasts, t)
	s.mu.Unlock()

	if s.push == nil {
		return
	}
	if res, ok := ctx.Value(resultKey{}).(*Result); ok && res.Redirect != "" {
		return
	}
	s.push.Toast(s.id, t)
}

// TakeToasts returns the queued toasts and clears the queue.
func (s *Session) TakeToasts() []store.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()

	toasts := slices.Clone(s.toasts)
	s.toasts = nil
	return toasts
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

func (s *Session) close() {
	s.mu.Lock()
	detach := s.detach
	s.detach = nil
	s.mu.Unlock()

	if detach != nil {
		detach()
	}
}
