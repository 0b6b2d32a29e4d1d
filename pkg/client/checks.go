package client

import (
	"context"
	"net/http"
)

type checkRequest struct {
	Connectors []string `json:"connectors,omitempty"`
}

// Connectors lists the configured connectors.
func (c *Client) Connectors(ctx context.Context) ([]Connector, error) {
	var out struct {
		Connectors []Connector `json:"connectors"`
	}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/v1/connectors", result: &out}); err != nil {
		return nil, err
	}
	return out.Connectors, nil
}

// Check runs one batch over names, or over every connector when none are
// given. Unknown names come back as fallback results, not errors.
func (c *Client) Check(ctx context.Context, names ...string) (*CheckResult, error) {
	var out CheckResult
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/v1/checks",
		body:   checkRequest{Connectors: names},
		result: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Latest returns the most recent batch. Before the first batch it fails with
// an APIError whose IsNotFound is true.
func (c *Client) Latest(ctx context.Context) (*CheckResult, error) {
	var out CheckResult
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/v1/checks/latest", result: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Live calls the liveness endpoint.
func (c *Client) Live(ctx context.Context) (*Liveness, error) {
	var out Liveness
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/healthz", result: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready calls the readiness endpoint. A 503 is an answer, not an error.
func (c *Client) Ready(ctx context.Context) (*Readiness, error) {
	var out Readiness
	status, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/readyz",
		result: &out,
		accept: []int{http.StatusServiceUnavailable},
	})
	if err != nil {
		return nil, err
	}
	out.Ready = status == http.StatusOK
	return &out, nil
}

//Personal.AI order the ending
