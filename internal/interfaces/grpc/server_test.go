package grpc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/turtacn/connprobe/internal/application/healthcheck"
	"github.com/turtacn/connprobe/internal/config"
	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/connprobe/pkg/errors"
)

type recordedCall struct{ service, method, code string }

type mockMetrics struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (m *mockMetrics) RecordGRPCRequest(service, method, code string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, recordedCall{service, method, code})
}

func (m *mockMetrics) snapshot() []recordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedCall(nil), m.calls...)
}

func startServer(t *testing.T, opts ...Option) (*Server, healthpb.HealthClient) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv, err := NewServer(&config.GRPCConfig{Enabled: true}, append(opts, WithListener(lis))...)
	require.NoError(t, err)
	go func() { _ = srv.Start() }()
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	conn, err := grpc.DialContext(context.Background(), "passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return srv, healthpb.NewHealthClient(conn)
}

func healthOf(name string, s connector.Status) connector.Health {
	return connector.Health{Name: name, Kind: connector.KindRedis, Connectivity: s, Primary: s, Secondary: s}
}

func check(t *testing.T, c healthpb.HealthClient, svc string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := c.Check(context.Background(), &healthpb.HealthCheckRequest{Service: svc})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestServer_AggregateFollowsReports(t *testing.T) {
	srv, client := startServer(t)

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ""))

	srv.Publish(&healthcheck.HealthReport{Results: []connector.Health{
		healthOf("Cache", connector.StatusOK),
		healthOf("pg-main", connector.StatusDegraded),
	}})
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, "cache"))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, "pg-main"))

	srv.Publish(&healthcheck.HealthReport{Results: []connector.Health{
		healthOf("Cache", connector.StatusUnavailable),
	}})
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, "cache"))

	srv.Publish(nil)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ""))
}

func TestServer_ForgetMissing(t *testing.T) {
	srv, client := startServer(t)
	srv.Publish(&healthcheck.HealthReport{Results: []connector.Health{
		healthOf("cache", connector.StatusOK),
		healthOf("queue", connector.StatusOK),
	}})

	srv.ForgetMissing([]string{"CACHE"})
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, "cache"))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVICE_UNKNOWN, check(t, client, "queue"))

	_, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "never-seen"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServer_RecordsMetrics(t *testing.T) {
	m := &mockMetrics{}
	_, client := startServer(t, WithMetrics(m), WithLogger(logging.NewNopLogger()))

	_ = check(t, client, "")
	calls := m.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, recordedCall{"grpc.health.v1.Health", "Check", "OK"}, calls[0])
}

func TestServer_Lifecycle(t *testing.T) {
	_, err := NewServer(nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	srv, err := NewServer(&config.GRPCConfig{Host: "127.0.0.1", Port: 0})
	require.NoError(t, err)
	assert.NotEmpty(t, srv.Addr())

	go func() { _ = srv.Start() }()
	require.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return srv.started
	}, time.Second, 5*time.Millisecond)
	assert.True(t, errors.IsCode(srv.Start(), errors.CodeConflict))
	assert.NoError(t, srv.Stop(context.Background()))
}

func TestServer_StopBeforeStart(t *testing.T) {
	srv, err := NewServer(&config.GRPCConfig{Host: "127.0.0.1", Port: 0})
	require.NoError(t, err)
	assert.NoError(t, srv.Stop(context.Background()))
}

func TestRecoveryUnaryInterceptor(t *testing.T) {
	ic := recoveryUnaryInterceptor(logging.NewNopLogger())
	info := &grpc.UnaryServerInfo{FullMethod: "/x.Svc/Boom"}

	_, err := ic(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))

	resp, err := ic(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		return "ok", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestSplitMethodName(t *testing.T) {
	svc, m := splitMethodName("/grpc.health.v1.Health/Watch")
	assert.Equal(t, "grpc.health.v1.Health", svc)
	assert.Equal(t, "Watch", m)

	svc, m = splitMethodName("Bare")
	assert.Equal(t, "unknown", svc)
	assert.Equal(t, "Bare", m)
	assert.True(t, isHealthCheck("/grpc.health.v1.Health/Check"))
}

//Personal.AI order the ending
