package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/connprobe/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithRetryWait(time.Millisecond, 2*time.Millisecond)}, opts...)
	c, err := NewClient(server.URL+"/", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	c, err := NewClient("http://probe.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "http://probe.example.com", c.baseURL)
	assert.Equal(t, 3, c.retryMax)
	assert.Contains(t, c.userAgent, "connprobe-go-client/")

	for _, bad := range []string{"", "ftp://probe", "probe.example.com", "http://[::1"} {
		_, err := NewClient(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidParam), bad)
	}
}

func TestOptions(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	c, err := NewClient("https://probe",
		WithHTTPClient(hc),
		WithRetryMax(0),
		WithRetryWait(time.Second, 10*time.Millisecond),
		WithUserAgent("ops-dashboard/2"),
		WithLogger(nil),
	)
	require.NoError(t, err)
	assert.Same(t, hc, c.httpClient)
	assert.Equal(t, 0, c.retryMax)
	assert.Equal(t, time.Second, c.retryWaitMin)
	assert.Equal(t, 5*time.Second, c.retryWaitMax, "max below min is ignored")
	assert.Equal(t, "ops-dashboard/2", c.userAgent)
	assert.NotNil(t, c.logger)
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"connectors": []Connector{{Name: "pg", Kind: "postgres"}},
		})
	})

	got, err := c.Connectors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Connector{{Name: "pg", Kind: "postgres"}}, got)
	assert.EqualValues(t, 3, calls.Load())
}

func TestDo_GivesUpAfterRetryMax(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"COMMON_001","message":"internal server error"}`))
	}, WithRetryMax(2))

	_, err := c.Latest(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsServerError())
	assert.Equal(t, "COMMON_001", apiErr.Code)
	assert.EqualValues(t, 3, calls.Load())
}

func TestDo_ClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("X-Request-ID", "req-42")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"COMMON_005","message":"no batch has run yet","detail":"x"}`))
	})

	_, err := c.Latest(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "no batch has run yet", apiErr.Message)
	assert.Equal(t, "req-42", apiErr.RequestID)
	assert.Contains(t, apiErr.Error(), "COMMON_005 (HTTP 404): no batch has run yet: x")
	assert.EqualValues(t, 1, calls.Load())
}

func TestDo_PlainTextErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	_, err := c.Live(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusMethodNotAllowed, apiErr.StatusCode)
	assert.Equal(t, "method not allowed", apiErr.Message)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithRetryWait(time.Second, time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Connectors(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_BadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})
	_, err := c.Live(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

func TestCalculateBackoff(t *testing.T) {
	c, err := NewClient("http://probe", WithRetryWait(100*time.Millisecond, 300*time.Millisecond))
	require.NoError(t, err)

	b1 := c.calculateBackoff(1)
	assert.GreaterOrEqual(t, b1, 100*time.Millisecond)
	assert.Less(t, b1, 125*time.Millisecond)

	b5 := c.calculateBackoff(5)
	assert.GreaterOrEqual(t, b5, 300*time.Millisecond)
	assert.Less(t, b5, 375*time.Millisecond)
}

func TestConnectorHealth_Overall(t *testing.T) {
	h := ConnectorHealth{Connectivity: StatusOK, Primary: StatusDegraded, Secondary: StatusOK, LatencyNS: int64(time.Millisecond)}
	assert.Equal(t, StatusDegraded, h.Overall())
	assert.Equal(t, time.Millisecond, h.Latency())

	h.Secondary = "bogus"
	assert.Equal(t, StatusUnavailable, h.Overall())
}

//Personal.AI order the ending
