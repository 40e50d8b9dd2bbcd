package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lllypuk/userdesk/internal/infrastructure/websocket"
	"github.com/lllypuk/userdesk/internal/store"
)

// Defaults for Manager.
const (
	DefaultIdleTTL       = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

// StoreFactory builds the store of a new session.
// The session is passed so it can be wired as navigator and notifier.
type StoreFactory func(s *Session) *store.Store

// Broadcaster pushes session activity to the browser's websocket connections.
type Broadcaster interface {
	Toast(sessionID string, t store.Toast)
	Attach(sessionID string, s websocket.Subscriber) func()
}

// Metrics records session lifecycle.
type Metrics interface {
	SessionOpened()
	SessionClosed()
}

type noopMetrics struct{}

func (noopMetrics) SessionOpened() {}
func (noopMetrics) SessionClosed() {}

// Manager owns the live sessions.
type Manager struct {
	newStore      StoreFactory
	broadcaster   Broadcaster
	metrics       Metrics
	logger        *slog.Logger
	idleTTL       time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithBroadcaster pushes toasts and list changes over websockets.
func WithBroadcaster(b Broadcaster) Option {
	return func(m *Manager) {
		m.broadcaster = b
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics Metrics) Option {
	return func(m *Manager) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithIdleTTL sets how long an unused session survives.
func WithIdleTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.idleTTL = d
		}
	}
}

// WithSweepInterval sets how often idle sessions are collected.
func WithSweepInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.sweepInterval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager.
func NewManager(newStore StoreFactory, opts ...Option) *Manager {
	m := &Manager{
		newStore:      newStore,
		metrics:       noopMetrics{},
		logger:        slog.Default(),
		idleTTL:       DefaultIdleTTL,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		sessions:      make(map[string]*Session),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Open starts a new session and returns its id.
func (m *Manager) Open(ctx context.Context) string {
	s := &Session{
		id:       uuid.NewString(),
		push:     m.broadcaster,
		lastSeen: m.now(),
	}
	s.store = m.newStore(s)
	if m.broadcaster != nil {
		s.detach = m.broadcaster.Attach(s.id, s.store)
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.metrics.SessionOpened()
	m.logger.DebugContext(ctx, "session created", slog.String("session_id", s.id))

	return s.id
}

// Touch reports whether id is a live session and refreshes its idle timer.
func (m *Manager) Touch(_ context.Context, id string) bool {
	s, ok := m.Get(id)
	if !ok {
		return false
	}
	s.touch(m.now())
	return true
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close ends a session. Unknown ids are ignored.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	s.close()
	m.metrics.SessionClosed()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes every session idle for longer than the idle TTL and returns
// how many were closed.
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.RLock()
	var idle []string
	for id, s := range m.sessions {
		if s.idleSince(now) > m.idleTTL {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range idle {
		m.Close(id)
	}

	return len(idle)
}

// Run sweeps idle sessions until ctx is done, then closes all sessions.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	m.logger.InfoContext(ctx, "session sweeper started",
		slog.Duration("idle_ttl", m.idleTTL),
		slog.Duration("interval", m.sweepInterval),
	)

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			m.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.DebugContext(ctx, "idle sessions closed", slog.Int("count", n))
			}
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.Close(id)
	}
}
