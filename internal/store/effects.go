package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lllypuk/userdesk/internal/domain/user"
)

// RouteUsers is where successful saves and deletions navigate to.
const RouteUsers = "/users"

// RouteCreate is the empty form.
const RouteCreate = "/users/create"

const defaultRemoteTimeout = 10 * time.Second

// Remote is the user backend the effects talk to.
type Remote interface {
	FindAll(ctx context.Context) ([]user.User, error)
	FindAllPageable(ctx context.Context, page int) (user.Page, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	Update(ctx context.Context, u user.User) (user.User, error)
	Delete(ctx context.Context, id int64) error
}

// Navigator changes the route shown to the user.
// ctx is the context the triggering action was dispatched with.
type Navigator interface {
	Navigate(ctx context.Context, route string)
}

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(ctx context.Context, t Toast)
}

// Toast is a transient notification.
type Toast struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Icon  string `json:"icon"`
}

// Toasts shown after a successful remote call.
var (
	ToastCreated = Toast{Title: "Usuario Creado", Text: "El usuario ha sido creado con éxito", Icon: "success"}
	ToastUpdated = Toast{Title: "Usuario Actualizado", Text: "El usuario ha sido actualizado con éxito", Icon: "success"}
	ToastRemoved = Toast{Title: "Eliminado!", Text: "El usuario ha sido eliminado.", Icon: "success"}
)

type (
	nopNavigator struct{}
	nopNotifier  struct{}
)

func (nopNavigator) Navigate(context.Context, string) {}
func (nopNotifier) Notify(context.Context, Toast)     {}

// UserEffects turns request actions into remote calls and result actions.
//
// Each request type is exhausted: while a call is pending, further actions
// of that type are rejected with ErrInFlight instead of being queued.
type UserEffects struct {
	remote    Remote
	guard     Guard
	key       string
	navigator Navigator
	notifier  Notifier
	logger    *slog.Logger
	metrics   Metrics
	timeout   time.Duration
}

// EffectOption configures UserEffects.
type EffectOption func(*UserEffects)

// WithGuard sets the in-flight guard. Defaults to a fresh MemoryGuard.
func WithGuard(g Guard) EffectOption {
	return func(e *UserEffects) {
		e.guard = g
	}
}

// WithGuardKey scopes guard keys, typically to a session id.
func WithGuardKey(key string) EffectOption {
	return func(e *UserEffects) {
		e.key = key
	}
}

// WithNavigator sets the navigator.
func WithNavigator(n Navigator) EffectOption {
	return func(e *UserEffects) {
		e.navigator = n
	}
}

// WithNotifier sets the notifier.
func WithNotifier(n Notifier) EffectOption {
	return func(e *UserEffects) {
		e.notifier = n
	}
}

// WithEffectLogger sets the logger.
func WithEffectLogger(logger *slog.Logger) EffectOption {
	return func(e *UserEffects) {
		e.logger = logger
	}
}

// WithEffectMetrics sets the metrics recorder.
func WithEffectMetrics(m Metrics) EffectOption {
	return func(e *UserEffects) {
		e.metrics = m
	}
}

// WithRemoteTimeout bounds every remote call.
func WithRemoteTimeout(d time.Duration) EffectOption {
	return func(e *UserEffects) {
		e.timeout = d
	}
}

// NewUserEffects creates the effects for one store.
func NewUserEffects(remote Remote, opts ...EffectOption) *UserEffects {
	e := &UserEffects{
		remote:    remote,
		navigator: nopNavigator{},
		notifier:  nopNotifier{},
		logger:    slog.Default(),
		metrics:   noopMetrics{},
		timeout:   defaultRemoteTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.guard == nil {
		e.guard = NewMemoryGuard()
	}

	return e
}

// Handle implements Effect.
func (e *UserEffects) Handle(ctx context.Context, a Action) (Action, error) {
	switch act := a.(type) {
	case Load:
		return e.exhaust(ctx, a.Type(), false, func(ctx context.Context) (Action, error) {
			page, err := e.remote.FindAllPageable(ctx, act.Page)
			if err != nil {
				return nil, err
			}
			return PageLoaded{Page: page}, nil
		})
	case Add:
		return e.exhaust(ctx, a.Type(), true, func(ctx context.Context) (Action, error) {
			created, err := e.remote.Create(ctx, act.User)
			if err != nil {
				return nil, err
			}
			return Added{User: created}, nil
		})
	case Update:
		return e.exhaust(ctx, a.Type(), true, func(ctx context.Context) (Action, error) {
			updated, err := e.remote.Update(ctx, act.User)
			if err != nil {
				return nil, err
			}
			return Updated{User: updated}, nil
		})
	case Remove:
		return e.exhaust(ctx, a.Type(), true, func(ctx context.Context) (Action, error) {
			if err := e.remote.Delete(ctx, act.ID); err != nil {
				return nil, err
			}
			return Removed{ID: act.ID}, nil
		})
	case Added:
		e.succeed(ctx, ToastCreated)
	case Updated:
		e.succeed(ctx, ToastUpdated)
	case Removed:
		e.succeed(ctx, ToastRemoved)
	}

	return nil, nil
}

func (e *UserEffects) exhaust(
	ctx context.Context,
	t ActionType,
	formErrors bool,
	call func(ctx context.Context) (Action, error),
) (Action, error) {
	release, err := e.guard.Acquire(ctx, e.guardKey(t))
	if errors.Is(err, ErrInFlight) {
		e.logger.DebugContext(ctx, "action dropped, already in flight", slog.String("action", string(t)))
		return nil, ErrInFlight
	}
	if err != nil {
		e.logger.WarnContext(ctx, "in-flight guard unavailable",
			slog.String("action", string(t)),
			slog.String("error", err.Error()))
		e.metrics.EffectCompleted(t, OutcomeFailed, 0)
		return nil, nil
	}
	defer release()

	// The request that triggered the call may go away; the call still settles.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	start := time.Now()
	next, err := call(callCtx)
	elapsed := time.Since(start)

	if err == nil {
		e.metrics.EffectCompleted(t, OutcomeSuccess, elapsed)
		return next, nil
	}

	var verr *user.ValidationError
	if formErrors && errors.As(err, &verr) {
		e.metrics.EffectCompleted(t, OutcomeValidation, elapsed)
		return SetErrors{Errors: verr.Errors.Clone()}, nil
	}

	e.metrics.EffectCompleted(t, OutcomeFailed, elapsed)
	e.logger.WarnContext(ctx, "remote call failed",
		slog.String("action", string(t)),
		slog.Duration("elapsed", elapsed),
		slog.String("error", err.Error()))

	return nil, nil
}

func (e *UserEffects) succeed(ctx context.Context, t Toast) {
	e.navigator.Navigate(ctx, RouteUsers)
	e.notifier.Notify(ctx, t)
}

func (e *UserEffects) guardKey(t ActionType) string {
	if e.key == "" {
		return string(t)
	}
	return e.key + ":" + string(t)
}
