// Package milvus probes Milvus vector databases with milvus-sdk-go.
package milvus

import (
	"context"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/internal/infrastructure/tlsconf"
	"github.com/turtacn/connprobe/pkg/errors"
)

// milvusAPI is the subset of client.Client a probe needs.
type milvusAPI interface {
	CheckHealth(ctx context.Context) (*entity.MilvusState, error)
	GetVersion(ctx context.Context) (string, error)
	HasCollection(ctx context.Context, collName string) (bool, error)
	GetLoadingProgress(ctx context.Context, collName string, partitionNames []string) (int64, error)
	Close() error
}

// milvusNewClient is a variable to allow mocking in tests.
var milvusNewClient = func(ctx context.Context, conf client.Config) (milvusAPI, error) {
	return client.NewClient(ctx, conf)
}

// Connector probes one Milvus instance.
//
// Options: collections (comma-separated; must exist and be fully loaded).
type Connector struct {
	connector.Base
	collections []string
}

// New validates spec and returns a Connector.
func New(spec connector.Spec) (*Connector, error) {
	if strings.TrimSpace(spec.Endpoint) == "" {
		return nil, errors.New(errors.ErrCodeConnectorMisconf, "milvus endpoint is required").WithDetail(spec.Name)
	}
	return &Connector{Base: connector.Base{Spec: spec}, collections: spec.OptionList("collections")}, nil
}

// Open dials the server. The SDK connects eagerly, so an unreachable server
// fails here and the probe records it as an open failure.
func (c *Connector) Open(ctx context.Context) (connector.Session, error) {
	tlsCfg, err := tlsconf.FromSpec(c.Spec)
	if err != nil {
		return nil, err
	}
	conf := client.Config{
		Address:  c.Spec.Endpoint,
		Username: c.Spec.Username,
		Password: c.Spec.Password,
		DBName:   c.Spec.Database,
	}
	var dialOpts []grpc.DialOption
	if tlsCfg != nil {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(tlsCfg)))
		conf.EnableTLSAuth = true
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	dialOpts = append(dialOpts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
		Time:                30 * time.Second,
		Timeout:             5 * time.Second,
		PermitWithoutStream: false,
	}))
	conf.DialOptions = dialOpts

	timeout := c.Spec.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	mc, err := milvusNewClient(connectCtx, conf)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSessionOpenFailed, "failed to connect to milvus").WithDetail(c.Spec.Endpoint)
	}
	return &session{client: mc, collections: c.collections}, nil
}

type session struct {
	client      milvusAPI
	collections []string
}

func (s *session) Connectivity(ctx context.Context) error {
	state, err := s.client.CheckHealth(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeProbeUnreachable, "milvus health check failed")
	}
	if state != nil && !state.IsHealthy {
		return errors.New(errors.ErrCodeProbeUnreachable, "milvus reports unhealthy").WithDetail(strings.Join(state.Reasons, "; "))
	}
	return nil
}

// Primary checks the configured collections exist, or that the server
// answers a version request when none are configured.
func (s *session) Primary(ctx context.Context) error {
	if len(s.collections) == 0 {
		if _, err := s.client.GetVersion(ctx); err != nil {
			return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "milvus GetVersion failed")
		}
		return nil
	}
	var missing []string
	for _, name := range s.collections {
		ok, err := s.client.HasCollection(ctx, name)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "milvus HasCollection failed").WithDetail(name)
		}
		if !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.New(errors.ErrCodeProbeBadResponse, "collections missing").WithDetail(strings.Join(missing, ","))
	}
	return nil
}

// Secondary reports a partially loaded collection as degraded.
func (s *session) Secondary(ctx context.Context) error {
	var loading []string
	for _, name := range s.collections {
		progress, err := s.client.GetLoadingProgress(ctx, name, nil)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "milvus GetLoadingProgress failed").WithDetail(name)
		}
		if progress < 100 {
			loading = append(loading, name)
		}
	}
	if len(loading) > 0 {
		return errors.Degraded("collections not fully loaded").WithDetail(strings.Join(loading, ","))
	}
	return nil
}

func (s *session) Close() error {
	return s.client.Close()
}

//Personal.AI order the ending
