// Package httpcheck probes plain HTTP endpoints.
package httpcheck

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/internal/infrastructure/tlsconf"
	"github.com/turtacn/connprobe/pkg/errors"
)

const (
	defaultLatencyThreshold = time.Second
	maxBodyDrain            = 64 << 10
)

// Connector probes one HTTP endpoint with a single GET.
//
// Options: latency_threshold (duration; slower responses are degraded,
// default 1s), header.<Name> (sent with the request).
type Connector struct {
	connector.Base
	url       string
	threshold time.Duration
	headers   http.Header
}

// New validates spec and returns a Connector.
func New(spec connector.Spec) (*Connector, error) {
	raw := strings.TrimSpace(spec.Endpoint)
	if raw == "" {
		return nil, errors.New(errors.ErrCodeConnectorMisconf, "http endpoint is required").WithDetail(spec.Name)
	}
	if !strings.Contains(raw, "://") {
		scheme := "http://"
		if spec.TLS {
			scheme = "https://"
		}
		raw = scheme + raw
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConnectorMisconf, "invalid http endpoint").WithDetail(raw)
	}

	threshold := defaultLatencyThreshold
	if v := spec.Option("latency_threshold", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, errors.New(errors.ErrCodeConnectorMisconf, "latency_threshold must be a positive duration").WithDetail(v)
		}
		threshold = d
	}

	headers := make(http.Header)
	for k, v := range spec.Options {
		if name, ok := strings.CutPrefix(k, "header."); ok && name != "" {
			headers.Set(name, v)
		}
	}
	return &Connector{Base: connector.Base{Spec: spec}, url: raw, threshold: threshold, headers: headers}, nil
}

func (c *Connector) Open(ctx context.Context) (connector.Session, error) {
	tlsCfg, err := tlsconf.FromSpec(c.Spec)
	if err != nil {
		return nil, err
	}
	transport := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		TLSClientConfig:   tlsCfg,
		DisableKeepAlives: true,
	}
	return &session{
		client:    &http.Client{Transport: transport},
		transport: transport,
		spec:      c.Spec,
		url:       c.url,
		threshold: c.threshold,
		headers:   c.headers,
	}, nil
}

type session struct {
	client    *http.Client
	transport *http.Transport
	spec      connector.Spec
	url       string
	threshold time.Duration
	headers   http.Header

	status  int
	latency time.Duration
}

// Connectivity sends the GET. Any HTTP response counts as reachable.
func (s *session) Connectivity(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConnectorMisconf, "failed to build request")
	}
	req.Header = s.headers.Clone()
	req.Header.Set("User-Agent", "connprobe")
	if s.spec.Username != "" {
		req.SetBasicAuth(s.spec.Username, s.spec.Password)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeProbeUnreachable, "http request failed").WithDetail(s.url)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyDrain))
	_ = resp.Body.Close()
	s.latency = time.Since(start)
	s.status = resp.StatusCode
	return nil
}

// Primary requires a 2xx status.
func (s *session) Primary(ctx context.Context) error {
	switch {
	case s.status >= 200 && s.status < 300:
		return nil
	case s.status == http.StatusUnauthorized || s.status == http.StatusForbidden:
		return errors.New(errors.ErrCodeProbeAuthFailed, "endpoint rejected the request").WithDetail(http.StatusText(s.status))
	default:
		return errors.Newf(errors.ErrCodeProbeBadResponse, "unexpected status %d", s.status)
	}
}

// Secondary reports a slow response as degraded.
func (s *session) Secondary(ctx context.Context) error {
	if s.latency > s.threshold {
		return errors.Degraded("response slower than threshold").
			WithDetail(s.latency.Round(time.Millisecond).String() + " > " + s.threshold.String())
	}
	return nil
}

func (s *session) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}

//Personal.AI order the ending
