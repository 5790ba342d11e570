package server

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// pingFunc adapts any dependency with a Ping method to the Pinger interface.
type pingFunc struct {
	name string
	ping func(ctx context.Context) error
}

// NewPinger wraps a dependency exposing Ping (the catalog store, the
// language model client, a vector store) as a named readiness probe.
func NewPinger(name string, dep interface{ Ping(ctx context.Context) error }) Pinger {
	return &pingFunc{name: name, ping: dep.Ping}
}

// Name returns the dependency label used in readiness responses.
func (p *pingFunc) Name() string { return p.name }

// Ping delegates to the wrapped dependency.
func (p *pingFunc) Ping(ctx context.Context) error { return p.ping(ctx) }

// RedisPinger probes the embedding cache with a PING command.
type RedisPinger struct {
	// client is the Redis client shared with the embedding cache.
	client redis.UniversalClient
}

// NewRedisPinger constructs a RedisPinger for the given client.
func NewRedisPinger(client redis.UniversalClient) *RedisPinger {
	return &RedisPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *RedisPinger) Name() string { return "redis" }

// Ping issues a Redis PING.
func (p *RedisPinger) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}
