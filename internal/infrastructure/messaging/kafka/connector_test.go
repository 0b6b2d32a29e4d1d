package kafka

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/pkg/errors"
)

type MockConn struct {
	mock.Mock
}

func (m *MockConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	args := m.Called(topics)
	return args.Get(0).([]kafka.Partition), args.Error(1)
}

func (m *MockConn) Controller() (kafka.Broker, error) {
	args := m.Called()
	return args.Get(0).(kafka.Broker), args.Error(1)
}

func (m *MockConn) SetDeadline(t time.Time) error { return m.Called(t).Error(0) }
func (m *MockConn) Close() error                  { return m.Called().Error(0) }

// stubDial answers each address from conns; unknown addresses fail.
func stubDial(t *testing.T, conns map[string]ConnInterface) *[]string {
	t.Helper()
	var dialed []string
	original := dial
	t.Cleanup(func() { dial = original })
	dial = func(_ context.Context, _ *kafka.Dialer, address string) (ConnInterface, error) {
		dialed = append(dialed, address)
		if c, ok := conns[address]; ok {
			return c, nil
		}
		return nil, stderrors.New("dial tcp " + address + ": connection refused")
	}
	return &dialed
}

func newSession(t *testing.T, endpoint string, opts map[string]string) connector.Session {
	t.Helper()
	c, err := New(connector.Spec{Name: "events", Kind: connector.KindKafka, Endpoint: endpoint, Options: opts})
	require.NoError(t, err)
	sess, err := c.Open(context.Background())
	require.NoError(t, err)
	return sess
}

func leader(host string) kafka.Broker { return kafka.Broker{Host: host, Port: 9092, ID: 1} }

func TestNew(t *testing.T) {
	c, err := New(connector.Spec{Name: "e", Endpoint: "k1:9092, k2:9092", Timeout: time.Second,
		Username: "u", Password: "p", Options: map[string]string{"sasl_mechanism": "scram-sha-512", "topics": "orders"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.brokers)
	assert.Equal(t, []string{"orders"}, c.topics)
	assert.Equal(t, time.Second, c.dialer.Timeout)
	assert.NotNil(t, c.dialer.SASLMechanism)

	_, err = New(connector.Spec{Name: "e", Endpoint: "k1:9092", Options: map[string]string{"sasl_mechanism": "GSSAPI"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeConnectorMisconf))

	_, err = New(connector.Spec{Name: "e"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeConnectorMisconf))
}

func TestSession_FallsThroughBootstrapList(t *testing.T) {
	conn := new(MockConn)
	conn.On("Close").Return(nil)
	dialed := stubDial(t, map[string]ConnInterface{"k2:9092": conn})

	sess := newSession(t, "k1:9092,k2:9092", nil)
	assert.NoError(t, sess.Connectivity(context.Background()))
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, *dialed)
	assert.NoError(t, sess.Close())
	conn.AssertExpectations(t)
}

func TestSession_NoBrokerReachable(t *testing.T) {
	stubDial(t, nil)
	sess := newSession(t, "k1:9092", nil)

	err := sess.Connectivity(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeProbeUnreachable))
	assert.True(t, errors.IsCode(sess.Primary(context.Background()), errors.ErrCodeProbeUnreachable))
	assert.NoError(t, sess.Close())
}

func TestSession_HealthyCluster(t *testing.T) {
	boot, ctrl := new(MockConn), new(MockConn)
	boot.On("SetDeadline", mock.Anything).Return(nil)
	boot.On("ReadPartitions", []string{"orders", "audit"}).Return([]kafka.Partition{
		{Topic: "orders", ID: 0, Leader: leader("k1")},
		{Topic: "orders", ID: 1, Leader: leader("k2")},
		{Topic: "audit", ID: 0, Leader: leader("k1")},
	}, nil)
	boot.On("Controller").Return(kafka.Broker{Host: "k3", Port: 9092, ID: 3}, nil)
	ctrl.On("Close").Return(nil)
	dialed := stubDial(t, map[string]ConnInterface{"k1:9092": boot, "k3:9092": ctrl})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sess := newSession(t, "k1:9092", map[string]string{"topics": "orders,audit"})

	require.NoError(t, sess.Connectivity(ctx))
	assert.NoError(t, sess.Primary(ctx))
	assert.NoError(t, sess.Secondary(ctx))
	assert.Equal(t, []string{"k1:9092", "k3:9092"}, *dialed)
	ctrl.AssertExpectations(t)
}

func TestSession_MissingTopic(t *testing.T) {
	boot := new(MockConn)
	boot.On("SetDeadline", mock.Anything).Return(nil)
	boot.On("ReadPartitions", []string{"orders", "ghost"}).Return([]kafka.Partition{
		{Topic: "orders", Leader: leader("k1")},
	}, nil)
	stubDial(t, map[string]ConnInterface{"k1:9092": boot})

	sess := newSession(t, "k1:9092", map[string]string{"topics": "orders,ghost"})
	require.NoError(t, sess.Connectivity(context.Background()))

	err := sess.Primary(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeProbeBadResponse))
	assert.Contains(t, err.Error(), "ghost")
}

func TestSession_LeaderlessPartitionIsDegraded(t *testing.T) {
	boot, ctrl := new(MockConn), new(MockConn)
	boot.On("SetDeadline", mock.Anything).Return(nil)
	boot.On("ReadPartitions", []string(nil)).Return([]kafka.Partition{
		{Topic: "orders", ID: 0, Leader: leader("k1")},
		{Topic: "orders", ID: 1},
	}, nil)
	boot.On("Controller").Return(leader("k3"), nil)
	ctrl.On("Close").Return(nil)
	stubDial(t, map[string]ConnInterface{"k1:9092": boot, "k3:9092": ctrl})

	sess := newSession(t, "k1:9092", nil)
	require.NoError(t, sess.Connectivity(context.Background()))
	require.NoError(t, sess.Primary(context.Background()))

	err := sess.Secondary(context.Background())
	assert.Equal(t, connector.StatusDegraded, connector.Classify(err))
	assert.Contains(t, err.Error(), "orders")
}

func TestSession_ControllerUnreachableIsDegraded(t *testing.T) {
	boot := new(MockConn)
	boot.On("SetDeadline", mock.Anything).Return(nil)
	boot.On("Controller").Return(kafka.Broker{Host: "k9", Port: 9092}, nil)
	stubDial(t, map[string]ConnInterface{"k1:9092": boot})

	sess := newSession(t, "k1:9092", nil)
	require.NoError(t, sess.Connectivity(context.Background()))

	err := sess.Secondary(context.Background())
	assert.Equal(t, connector.StatusDegraded, connector.Classify(err))
}

//Personal.AI order the ending
