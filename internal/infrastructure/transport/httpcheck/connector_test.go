package httpcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/pkg/errors"
)

func runPhases(t *testing.T, spec connector.Spec) (conn, primary, secondary error) {
	t.Helper()
	c, err := New(spec)
	require.NoError(t, err)
	sess, err := c.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	ctx := context.Background()
	conn = sess.Connectivity(ctx)
	if conn != nil {
		return conn, nil, nil
	}
	return conn, sess.Primary(ctx), sess.Secondary(ctx)
}

func TestNew_Validation(t *testing.T) {
	c, err := New(connector.Spec{Endpoint: "status.internal/healthz", TLS: true,
		Options: map[string]string{"latency_threshold": "250ms", "header.X-Probe": "1"}})
	require.NoError(t, err)
	assert.Equal(t, "https://status.internal/healthz", c.url)
	assert.Equal(t, 250*time.Millisecond, c.threshold)
	assert.Equal(t, "1", c.headers.Get("X-Probe"))

	_, err = New(connector.Spec{Name: "h"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeConnectorMisconf))

	_, err = New(connector.Spec{Name: "h", Endpoint: "x", Options: map[string]string{"latency_threshold": "fast"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeConnectorMisconf))
}

func TestSession_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "probe", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "abc", r.Header.Get("X-Token"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	conn, primary, secondary := runPhases(t, connector.Spec{Endpoint: srv.URL, Username: "probe", Password: "secret",
		Options: map[string]string{"header.X-Token": "abc"}})
	assert.NoError(t, conn)
	assert.NoError(t, primary)
	assert.NoError(t, secondary)
}

func TestSession_StatusClassification(t *testing.T) {
	cases := []struct {
		status int
		code   errors.ErrorCode
	}{
		{http.StatusForbidden, errors.ErrCodeProbeAuthFailed},
		{http.StatusServiceUnavailable, errors.ErrCodeProbeBadResponse},
		{http.StatusNotFound, errors.ErrCodeProbeBadResponse},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		conn, primary, _ := runPhases(t, connector.Spec{Endpoint: srv.URL})
		srv.Close()

		assert.NoError(t, conn)
		assert.True(t, errors.IsCode(primary, tc.code), "status %d", tc.status)
	}
}

func TestSession_SlowResponseIsDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
	}))
	defer srv.Close()

	_, primary, secondary := runPhases(t, connector.Spec{Endpoint: srv.URL,
		Options: map[string]string{"latency_threshold": "5ms"}})
	assert.NoError(t, primary)
	assert.Equal(t, connector.StatusDegraded, connector.Classify(secondary))
}

func TestSession_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	conn, _, _ := runPhases(t, connector.Spec{Endpoint: url})
	assert.True(t, errors.IsCode(conn, errors.ErrCodeProbeUnreachable))
}

//Personal.AI order the ending
