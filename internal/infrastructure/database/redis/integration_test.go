//go:build integration

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/AdamCoscia/KnowledgeVIS/internal/config"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
)

// startRedis launches a Redis 7 container and returns a connected client.
func startRedis(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewClient(config.RedisConfig{Addr: fmt.Sprintf("%s:%s", host, port.Port())}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type cachedDataset struct {
	Model string             `json:"model"`
	Terms map[string]float64 `json:"terms"`
}

func TestRedisCache_Integration(t *testing.T) {
	client := startRedis(t)
	cache := NewRedisCache(client, logging.NewNopLogger(), WithPrefix("kv:test:"), WithDefaultTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, cache.Ping(ctx))

	in := cachedDataset{Model: "bert", Terms: map[string]float64{"pet": 0.5}}
	require.NoError(t, cache.Set(ctx, "query:a", in, 0))
	require.NoError(t, cache.Set(ctx, "query:b", in, 0))
	require.NoError(t, cache.Set(ctx, "other", in, 0))

	var out cachedDataset
	require.NoError(t, cache.Get(ctx, "query:a", &out))
	assert.Equal(t, in, out)

	n, err := cache.DeleteByPrefix(ctx, "query:")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	assert.ErrorIs(t, cache.Get(ctx, "query:b", &out), ErrCacheMiss)
	ok, err := cache.Exists(ctx, "other")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCache_IntegrationExpiry(t *testing.T) {
	client := startRedis(t)
	cache := NewRedisCache(client, logging.NewNopLogger(), WithPrefix("kv:ttl:"))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", "x", time.Second))
	assert.Eventually(t, func() bool {
		ok, err := cache.Exists(ctx, "short")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}
