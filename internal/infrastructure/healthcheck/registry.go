package healthcheck

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lllypuk/userdesk/internal/infrastructure/httpserver"
)

// DefaultCheckTimeout bounds a single checker run.
const DefaultCheckTimeout = 2 * time.Second

type entry struct {
	checker  Checker
	required bool
}

// Registry runs a set of checkers and implements httpserver.HealthChecker.
//
// A failing required checker makes the process not ready and is reported
// as unhealthy. A failing optional checker only degrades it.
type Registry struct {
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.RWMutex
	entries []entry
}

// Ensure Registry implements httpserver.HealthChecker.
var _ httpserver.HealthChecker = (*Registry)(nil)

// RegistryOption configures Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for failed checks.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTimeout sets the per-checker timeout.
func WithTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:  slog.Default(),
		timeout: DefaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Require adds checkers that must pass for the process to be ready.
func (r *Registry) Require(checkers ...Checker) {
	r.add(true, checkers)
}

// Observe adds checkers whose failure only degrades the process.
func (r *Registry) Observe(checkers ...Checker) {
	r.add(false, checkers)
}

func (r *Registry) add(required bool, checkers []Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range checkers {
		r.entries = append(r.entries, entry{checker: c, required: required})
	}
}

// Names returns the registered checker names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.checker.Name())
	}
	return names
}

// IsReady implements httpserver.HealthChecker.
func (r *Registry) IsReady(ctx context.Context) bool {
	for _, e := range r.snapshot() {
		if !e.required {
			continue
		}
		if st := r.run(ctx, e.checker); !st.Healthy {
			return false
		}
	}
	return true
}

// GetHealthStatus implements httpserver.HealthChecker.
func (r *Registry) GetHealthStatus(ctx context.Context) []httpserver.ComponentStatus {
	entries := r.snapshot()
	statuses := make([]httpserver.ComponentStatus, len(entries))

	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := r.run(ctx, e.checker)

			status := httpserver.StatusHealthy
			if !st.Healthy {
				status = httpserver.StatusDegraded
				if e.required {
					status = httpserver.StatusUnhealthy
				}
			}
			statuses[i] = httpserver.ComponentStatus{
				Name:    e.checker.Name(),
				Status:  status,
				Message: st.Message,
			}
		}()
	}
	wg.Wait()

	return statuses
}

func (r *Registry) snapshot() []entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entry(nil), r.entries...)
}

func (r *Registry) run(ctx context.Context, c Checker) Status {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	st := c.Check(ctx)
	if !st.Healthy {
		r.logger.WarnContext(ctx, "health check failed",
			slog.String("component", c.Name()),
			slog.String("message", st.Message),
		)
	}
	return st
}
