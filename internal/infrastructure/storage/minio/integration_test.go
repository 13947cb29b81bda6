//go:build integration

package minio

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

func startMinIO(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     "knowledgevis",
				"MINIO_ROOT_PASSWORD": "knowledgevis-secret",
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	client, err := NewClient(ctx, config.MinIOConfig{
		Enabled:       true,
		Endpoint:      fmt.Sprintf("%s:%s", host, port.Port()),
		AccessKey:     "knowledgevis",
		SecretKey:     "knowledgevis-secret",
		Bucket:        "exports-test",
		RetentionDays: 1,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClient_IntegrationRoundTrip(t *testing.T) {
	client := startMinIO(t)
	ctx := context.Background()

	body := []byte(`{"model":"bert"}`)
	info, err := client.Put(ctx, "sessions/s-1/a.json", body, "application/json", map[string]string{"model": "bert"})
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), info.Size)

	got, gotInfo, err := client.Get(ctx, "sessions/s-1/a.json")
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.Equal(t, "application/json", gotInfo.ContentType)

	list, err := client.List(ctx, "sessions/s-1/")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sessions/s-1/a.json", list[0].Key)

	link, err := client.PresignGet(ctx, "sessions/s-1/a.json", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, link, "exports-test/sessions/s-1/a.json")

	require.NoError(t, client.Delete(ctx, "sessions/s-1/a.json"))
	ok, err := client.Exists(ctx, "sessions/s-1/a.json")
	require.NoError(t, err)
	assert.False(t, ok)
}
