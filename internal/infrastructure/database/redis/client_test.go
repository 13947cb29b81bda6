package redis

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamCoscia/KnowledgeVIS/internal/config"
	"github.com/AdamCoscia/KnowledgeVIS/internal/testutil"
)

func TestNewClient_ConnectionFailed(t *testing.T) {
	client, err := NewClient(config.RedisConfig{Addr: "127.0.0.1:1"}, testutil.NewMockLogger())
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestClient_CommandsAfterClose(t *testing.T) {
	db, mock := redismock.NewClientMock()
	logger := testutil.NewMockLogger()
	client := newClient(db, logger)

	mock.ExpectSet("k", "v", 0).SetVal("OK")
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())

	require.NoError(t, client.Close())
	assert.NoError(t, client.Close())
	assert.True(t, logger.HasMessage("info", "Closed Redis client"))

	ctx := context.Background()
	assert.Equal(t, ErrClientClosed, client.Get(ctx, "k").Err())
	assert.Equal(t, ErrClientClosed, client.Del(ctx, "k").Err())
	assert.Equal(t, ErrClientClosed, client.Exists(ctx, "k").Err())
	assert.Equal(t, ErrClientClosed, client.Scan(ctx, 0, "*", 10).Err())
	assert.Equal(t, ErrClientClosed, client.Ping(ctx))
}

func TestApplyDefaults(t *testing.T) {
	cfg := config.RedisConfig{Addr: "localhost:6379"}
	applyDefaults(&cfg)
	assert.Positive(t, cfg.PoolSize)
	assert.Equal(t, 2, cfg.MinIdleConns)
	assert.NotZero(t, cfg.DialTimeout)
}
