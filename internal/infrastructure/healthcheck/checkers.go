// Package healthcheck provides health checks for the dependencies of the
// web frontend and the Users API.
package healthcheck

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Checker checks the health of a specific component.
type Checker interface {
	// Name returns the component name shown on /health/details.
	Name() string

	// Check performs the health check and returns status.
	Check(ctx context.Context) Status
}

// Status represents the health status of a component.
type Status struct {
	Healthy   bool           `json:"healthy"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CheckedAt time.Time      `json:"checked_at"`
}

func healthy(details map[string]any) Status {
	return Status{Healthy: true, Details: details, CheckedAt: time.Now()}
}

func unhealthy(msg string) Status {
	return Status{Healthy: false, Message: msg, CheckedAt: time.Now()}
}

// MongoChecker pings MongoDB.
type MongoChecker struct {
	client *mongo.Client
}

// NewMongoChecker creates a new MongoDB health checker.
func NewMongoChecker(client *mongo.Client) *MongoChecker {
	return &MongoChecker{client: client}
}

// Name returns the name of this health checker.
func (c *MongoChecker) Name() string {
	return "mongodb"
}

// Check performs the health check.
func (c *MongoChecker) Check(ctx context.Context) Status {
	if c.client == nil {
		return unhealthy("client not initialized")
	}
	if err := c.client.Ping(ctx, nil); err != nil {
		return unhealthy(err.Error())
	}
	return healthy(nil)
}

// RedisChecker pings Redis.
type RedisChecker struct {
	client redis.UniversalClient
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

// Name returns the name of this health checker.
func (c *RedisChecker) Name() string {
	return "redis"
}

// Check performs the health check.
func (c *RedisChecker) Check(ctx context.Context) Status {
	if c.client == nil {
		return unhealthy("client not initialized")
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return unhealthy(err.Error())
	}
	return healthy(nil)
}

// Hub is the part of the websocket hub the checker looks at.
type Hub interface {
	IsRunning() bool
	ClientCount() int
}

// HubChecker reports whether the websocket hub loop is running.
type HubChecker struct {
	hub Hub
}

// NewHubChecker creates a new websocket hub health checker.
func NewHubChecker(hub Hub) *HubChecker {
	return &HubChecker{hub: hub}
}

// Name returns the name of this health checker.
func (c *HubChecker) Name() string {
	return "websocket_hub"
}

// Check performs the health check.
func (c *HubChecker) Check(_ context.Context) Status {
	if c.hub == nil {
		return unhealthy("hub not initialized")
	}
	if !c.hub.IsRunning() {
		return unhealthy("hub not running")
	}
	return healthy(map[string]any{"clients": c.hub.ClientCount()})
}

// ProbeFunc reports an error when a dependency cannot be reached.
type ProbeFunc func(ctx context.Context) error

// ProbeChecker wraps a ProbeFunc, e.g. a cheap call against the Users API.
type ProbeChecker struct {
	name  string
	probe ProbeFunc
}

// NewProbeChecker creates a health checker named name backed by probe.
func NewProbeChecker(name string, probe ProbeFunc) *ProbeChecker {
	return &ProbeChecker{name: name, probe: probe}
}

// Name returns the name of this health checker.
func (c *ProbeChecker) Name() string {
	return c.name
}

// Check performs the health check.
func (c *ProbeChecker) Check(ctx context.Context) Status {
	start := time.Now()
	if err := c.probe(ctx); err != nil {
		return unhealthy(fmt.Sprintf("probe failed: %v", err))
	}
	return healthy(map[string]any{"latency": time.Since(start).String()})
}

// Counter reports a gauge-like value, e.g. live sessions.
type Counter interface {
	Len() int
}

// CountChecker is always healthy and reports count in its details.
type CountChecker struct {
	name    string
	counter Counter
}

// NewCountChecker creates an informational checker.
func NewCountChecker(name string, counter Counter) *CountChecker {
	return &CountChecker{name: name, counter: counter}
}

// Name returns the name of this health checker.
func (c *CountChecker) Name() string {
	return c.name
}

// Check performs the health check.
func (c *CountChecker) Check(_ context.Context) Status {
	return healthy(map[string]any{"count": c.counter.Len()})
}
