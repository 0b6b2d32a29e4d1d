// Package opensearch probes OpenSearch clusters with opensearch-go v3.
package opensearch

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v3"
	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/internal/infrastructure/tlsconf"
	"github.com/turtacn/connprobe/pkg/errors"
)

// Cluster health colours.
const (
	statusGreen  = "green"
	statusYellow = "yellow"
	statusRed    = "red"
)

// Connector probes one OpenSearch cluster. Endpoint is a comma-separated
// list of node URLs.
//
// Options: indices (comma-separated, scopes the cluster health call).
type Connector struct {
	connector.Base
	addresses []string
	indices   []string
}

// New validates spec and returns a Connector.
func New(spec connector.Spec) (*Connector, error) {
	var addrs []string
	for _, a := range strings.Split(spec.Endpoint, ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if !strings.Contains(a, "://") {
			scheme := "http://"
			if spec.TLS {
				scheme = "https://"
			}
			a = scheme + a
		}
		addrs = append(addrs, a)
	}
	if len(addrs) == 0 {
		return nil, errors.New(errors.ErrCodeConnectorMisconf, "opensearch endpoint is required").WithDetail(spec.Name)
	}
	return &Connector{Base: connector.Base{Spec: spec}, addresses: addrs, indices: spec.OptionList("indices")}, nil
}

func (c *Connector) Open(ctx context.Context) (connector.Session, error) {
	tlsCfg, err := tlsconf.FromSpec(c.Spec)
	if err != nil {
		return nil, err
	}
	timeout := c.Spec.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost:   1,
		TLSClientConfig:       tlsCfg,
		ResponseHeaderTimeout: timeout,
	}
	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses:    c.addresses,
			Username:     c.Spec.Username,
			Password:     c.Spec.Password,
			Transport:    transport,
			DisableRetry: true,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSessionOpenFailed, "failed to create opensearch client")
	}
	return &session{client: client, transport: transport, indices: c.indices}, nil
}

type session struct {
	client    *opensearchapi.Client
	transport *http.Transport
	indices   []string

	health *opensearchapi.ClusterHealthResp
}

func (s *session) Connectivity(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, nil)
	if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		return errors.New(errors.ErrCodeProbeAuthFailed, "opensearch rejected the credentials").WithDetail(resp.Status())
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeProbeUnreachable, "opensearch ping failed")
	}
	if resp.IsError() {
		return errors.New(errors.ErrCodeProbeUnreachable, "opensearch ping returned error status").WithDetail(resp.Status())
	}
	return nil
}

// Primary fails on a red cluster.
func (s *session) Primary(ctx context.Context) error {
	health, err := s.client.Cluster.Health(ctx, &opensearchapi.ClusterHealthReq{Indices: s.indices})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "cluster health request failed")
	}
	s.health = health
	if health.Status == statusRed {
		return errors.New(errors.ErrCodeProbeBadResponse, "cluster health is red").WithDetail(health.ClusterName)
	}
	return nil
}

// Secondary reports anything short of green as degraded. It reuses the
// health document fetched by Primary.
func (s *session) Secondary(ctx context.Context) error {
	if s.health == nil {
		if err := s.Primary(ctx); err != nil && s.health == nil {
			return err
		}
	}
	switch s.health.Status {
	case statusGreen:
		return nil
	case statusYellow:
		return errors.Degraded("cluster health is yellow").WithDetail(s.health.ClusterName)
	default:
		return errors.Degraded("cluster health is " + s.health.Status).WithDetail(s.health.ClusterName)
	}
}

func (s *session) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}

//Personal.AI order the ending
