//go:build integration

package redis_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/connprobe/internal/application/healthcheck"
	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/internal/infrastructure/database/redis"
	"github.com/turtacn/connprobe/internal/infrastructure/monitoring/logging"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return net.JoinHostPort(host, port.Port())
}

func TestIntegration_RedisIsHealthy(t *testing.T) {
	endpoint := startRedis(t)
	c, err := redis.New(connector.Spec{
		Name:     "cache-it",
		Kind:     connector.KindRedis,
		Endpoint: endpoint,
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)

	h, err := healthcheck.Probe(context.Background(), c, time.Now, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, connector.StatusOK, h.Overall(), h.Detail)
	assert.Positive(t, h.Latency)
}

func TestIntegration_RedisBatchWithUnknownName(t *testing.T) {
	endpoint := startRedis(t)
	c, err := redis.New(connector.Spec{Name: "cache-it", Kind: connector.KindRedis, Endpoint: endpoint})
	require.NoError(t, err)

	svc := healthcheck.NewService(catalogOf{c}, nil,
		healthcheck.WithConcurrency(1), healthcheck.WithDeadline(5*time.Second))
	report, err := svc.Check(context.Background(), []string{"CACHE-IT", "ghost"})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, connector.StatusOK, report.Results[0].Overall())
	assert.True(t, report.Results[1].Fallback)
}

type catalogOf []connector.Connector

func (c catalogOf) Lookup(name string) (connector.Connector, bool) {
	for _, x := range c {
		if connector.SameName(x.Name(), name) {
			return x, true
		}
	}
	return nil, false
}

func (c catalogOf) Names() []string {
	out := make([]string, len(c))
	for i, x := range c {
		out[i] = x.Name()
	}
	return out
}

//Personal.AI order the ending
