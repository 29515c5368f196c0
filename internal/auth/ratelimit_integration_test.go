//go:build integration

package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRateLimiter_Redis(t *testing.T) {
	client := startRedis(t)
	rl := NewRateLimiter(client, RateLimitConfig{Limit: 2, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := rl.Allow(ctx, "billing"); err != nil {
			t.Fatalf("send %d: unexpected error %v", i+1, err)
		}
	}
	if err := rl.Allow(ctx, "billing"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third send: expected ErrRateLimited, got %v", err)
	}

	// Other clients have their own allowance.
	if err := rl.Allow(ctx, "ops"); err != nil {
		t.Errorf("ops: unexpected error %v", err)
	}

	key, _ := rl.windowKey("billing")
	ttl, err := client.TTL(ctx, key).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute+time.Second {
		t.Errorf("unexpected ttl %v", ttl)
	}
}
