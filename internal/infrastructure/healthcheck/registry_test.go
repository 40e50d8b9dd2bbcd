package healthcheck_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/userdesk/internal/infrastructure/healthcheck"
	"github.com/lllypuk/userdesk/internal/infrastructure/httpserver"
)

type fakeHub struct {
	running bool
	clients int
}

func (h fakeHub) IsRunning() bool  { return h.running }
func (h fakeHub) ClientCount() int { return h.clients }

type fakeCounter int

func (c fakeCounter) Len() int { return int(c) }

func probe(err error) healthcheck.ProbeFunc {
	return func(context.Context) error { return err }
}

func newRegistry() *healthcheck.Registry {
	return healthcheck.NewRegistry(healthcheck.WithLogger(slog.New(slog.DiscardHandler)))
}

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		checker healthcheck.Checker
		healthy bool
		message string
	}{
		{"hub running", healthcheck.NewHubChecker(fakeHub{running: true, clients: 2}), true, ""},
		{"hub stopped", healthcheck.NewHubChecker(fakeHub{}), false, "hub not running"},
		{"hub missing", healthcheck.NewHubChecker(nil), false, "hub not initialized"},
		{"probe ok", healthcheck.NewProbeChecker("users_api", probe(nil)), true, ""},
		{"probe fails", healthcheck.NewProbeChecker("users_api", probe(errors.New("refused"))), false, "probe failed: refused"},
		{"mongo missing", healthcheck.NewMongoChecker(nil), false, "client not initialized"},
		{"redis missing", healthcheck.NewRedisChecker(nil), false, "client not initialized"},
		{"count", healthcheck.NewCountChecker("sessions", fakeCounter(3)), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := tt.checker.Check(ctx)
			assert.Equal(t, tt.healthy, st.Healthy)
			assert.Equal(t, tt.message, st.Message)
			assert.False(t, st.CheckedAt.IsZero())
		})
	}
}

func TestHubChecker_ReportsClients(t *testing.T) {
	st := healthcheck.NewHubChecker(fakeHub{running: true, clients: 4}).Check(context.Background())
	assert.Equal(t, 4, st.Details["clients"])
}

func TestRegistry_Ready(t *testing.T) {
	ctx := context.Background()

	t.Run("empty registry is ready", func(t *testing.T) {
		assert.True(t, newRegistry().IsReady(ctx))
	})

	t.Run("failing optional checker keeps it ready", func(t *testing.T) {
		r := newRegistry()
		r.Require(healthcheck.NewProbeChecker("users_api", probe(nil)))
		r.Observe(healthcheck.NewProbeChecker("redis", probe(errors.New("down"))))
		assert.True(t, r.IsReady(ctx))
	})

	t.Run("failing required checker is not ready", func(t *testing.T) {
		r := newRegistry()
		r.Require(healthcheck.NewProbeChecker("users_api", probe(errors.New("down"))))
		assert.False(t, r.IsReady(ctx))
	})
}

func TestRegistry_GetHealthStatus(t *testing.T) {
	r := newRegistry()
	r.Require(
		healthcheck.NewHubChecker(fakeHub{running: true}),
		healthcheck.NewProbeChecker("users_api", probe(errors.New("down"))),
	)
	r.Observe(healthcheck.NewProbeChecker("redis", probe(errors.New("down"))))

	statuses := r.GetHealthStatus(context.Background())
	require.Len(t, statuses, 3)

	assert.Equal(t, []string{"websocket_hub", "users_api", "redis"}, r.Names())
	assert.Equal(t, httpserver.StatusHealthy, statuses[0].Status)
	assert.Equal(t, httpserver.StatusUnhealthy, statuses[1].Status)
	assert.Equal(t, "probe failed: down", statuses[1].Message)
	assert.Equal(t, httpserver.StatusDegraded, statuses[2].Status)
}

func TestRegistry_TimesOutSlowChecker(t *testing.T) {
	r := healthcheck.NewRegistry(
		healthcheck.WithLogger(slog.New(slog.DiscardHandler)),
		healthcheck.WithTimeout(20*time.Millisecond),
	)
	r.Require(healthcheck.NewProbeChecker("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	start := time.Now()
	assert.False(t, r.IsReady(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}
