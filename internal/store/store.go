package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lllypuk/userdesk/internal/domain/user"
)

// Store errors.
var (
	// ErrInFlight is returned when an action of the same type is still pending.
	ErrInFlight = errors.New("an action of the same type is already in flight")

	// ErrNilAction is returned when Dispatch receives nil.
	ErrNilAction = errors.New("action cannot be nil")
)

// Effect reacts to dispatched actions after they were reduced.
// It returns the follow-up action to dispatch, or nil.
type Effect interface {
	Handle(ctx context.Context, a Action) (Action, error)
}

// Listener observes every reduction.
type Listener func(s State, a Action)

// Metrics records dispatcher activity.
// Declared on the consumer side; see infrastructure/metrics for the Prometheus implementation.
type Metrics interface {
	ActionDispatched(t ActionType)
	ActionDropped(t ActionType)
	EffectCompleted(t ActionType, outcome string, elapsed time.Duration)
}

// Effect outcomes reported to Metrics.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation"
	OutcomeFailed     = "failed"
)

type noopMetrics struct{}

func (noopMetrics) ActionDispatched(ActionType)                       {}
func (noopMetrics) ActionDropped(ActionType)                          {}
func (noopMetrics) EffectCompleted(ActionType, string, time.Duration) {}

// Store holds the state of one browser session and is its single dispatcher.
type Store struct {
	mu    sync.Mutex
	state State

	effects []Effect
	logger  *slog.Logger
	metrics Metrics

	listenersMu sync.RWMutex
	listeners   map[int]Listener
	nextID      int
}

// Option configures a Store.
type Option func(*Store)

// WithEffects registers effects in the order they run.
func WithEffects(effects ...Effect) Option {
	return func(s *Store) {
		s.effects = append(s.effects, effects...)
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithState sets the initial state.
func WithState(st State) Option {
	return func(s *Store) {
		s.state = st.Clone()
	}
}

// New creates a Store.
func New(opts ...Option) *Store {
	s := &Store{
		logger:    slog.Default(),
		metrics:   noopMetrics{},
		listeners: make(map[int]Listener),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Dispatch reduces a, notifies listeners and runs the effects, dispatching
// every follow-up action they return before it returns.
//
// The only errors surfaced are ErrInFlight (possibly joined) and ErrNilAction;
// failures of remote calls are handled by the effects.
func (s *Store) Dispatch(ctx context.Context, a Action) error {
	if a == nil {
		return ErrNilAction
	}

	s.metrics.ActionDispatched(a.Type())
	s.logger.DebugContext(ctx, "action dispatched", slog.String("action", string(a.Type())))

	s.mu.Lock()
	s.state = Reduce(s.state, a)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.notify(snapshot, a)

	var errs []error
	for _, fx := range s.effects {
		next, err := fx.Handle(ctx, a)
		if err != nil {
			if errors.Is(err, ErrInFlight) {
				s.metrics.ActionDropped(a.Type())
			}
			errs = append(errs, err)
			continue
		}
		if next == nil {
			continue
		}
		if err := s.Dispatch(ctx, next); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Find returns the user with the given id from the current page.
func (s *Store) Find(id int64) (user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Find(id)
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify(st State, a Action) {
	s.listenersMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		l(st, a)
	}
}
