// Package grpchealth probes gRPC servers through the standard health
// checking protocol (grpc.health.v1).
package grpchealth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/internal/infrastructure/tlsconf"
	"github.com/turtacn/connprobe/pkg/errors"
)

// dialContext is a variable to allow mocking in tests.
var dialContext = func(ctx context.Context, target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	return grpc.DialContext(ctx, target, opts...)
}

// Connector probes one gRPC endpoint.
//
// Options: services (comma-separated service names checked in the
// secondary phase).
type Connector struct {
	connector.Base
	services []string
}

// New validates spec and returns a Connector.
func New(spec connector.Spec) (*Connector, error) {
	if strings.TrimSpace(spec.Endpoint) == "" {
		return nil, errors.New(errors.ErrCodeConnectorMisconf, "grpc endpoint is required").WithDetail(spec.Name)
	}
	return &Connector{Base: connector.Base{Spec: spec}, services: spec.OptionList("services")}, nil
}

// Open creates a lazy client connection.
func (c *Connector) Open(ctx context.Context) (connector.Session, error) {
	tlsCfg, err := tlsconf.FromSpec(c.Spec)
	if err != nil {
		return nil, err
	}
	creds := insecure.NewCredentials()
	if tlsCfg != nil {
		creds = credentials.NewTLS(tlsCfg)
	}
	cc, err := dialContext(ctx, c.Spec.Endpoint,
		grpc.WithTransportCredentials(creds),
		grpc.WithUserAgent("connprobe"),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSessionOpenFailed, "failed to create grpc client").WithDetail(c.Spec.Endpoint)
	}
	return &session{cc: cc, client: healthpb.NewHealthClient(cc), services: c.services}, nil
}

type session struct {
	cc       *grpc.ClientConn
	client   healthpb.HealthClient
	services []string

	overall    healthpb.HealthCheckResponse_ServingStatus
	overallErr error
}

// Connectivity issues the server-wide check. Any answer from the server,
// including Unimplemented, proves the endpoint is reachable.
func (s *session) Connectivity(ctx context.Context) error {
	resp, err := s.client.Check(ctx, &healthpb.HealthCheckRequest{Service: ""})
	if err != nil {
		switch status.Code(err) {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
			return errors.Wrap(err, errors.ErrCodeProbeUnreachable, "grpc endpoint unreachable")
		case codes.Unauthenticated, codes.PermissionDenied:
			return errors.Wrap(err, errors.ErrCodeProbeAuthFailed, "grpc endpoint rejected the call")
		}
		s.overallErr = err
		return nil
	}
	s.overall = resp.GetStatus()
	return nil
}

// Primary requires the server-wide status to be SERVING.
func (s *session) Primary(ctx context.Context) error {
	if s.overallErr != nil {
		return errors.Wrap(s.overallErr, errors.ErrCodeProbeBadResponse, "health service not available")
	}
	if s.overall != healthpb.HealthCheckResponse_SERVING {
		return errors.New(errors.ErrCodeProbeBadResponse, "server is not serving").WithDetail(s.overall.String())
	}
	return nil
}

// Secondary checks each configured service. Services that are unknown or
// not serving are degraded.
func (s *session) Secondary(ctx context.Context) error {
	var bad []string
	for _, svc := range s.services {
		resp, err := s.client.Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
		switch {
		case status.Code(err) == codes.NotFound:
			bad = append(bad, svc+"=UNKNOWN")
		case err != nil:
			return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "service health check failed").WithDetail(svc)
		case resp.GetStatus() != healthpb.HealthCheckResponse_SERVING:
			bad = append(bad, svc+"="+resp.GetStatus().String())
		}
	}
	if len(bad) > 0 {
		return errors.Degraded("services not serving").WithDetail(strings.Join(bad, ","))
	}
	return nil
}

func (s *session) Close() error {
	return s.cc.Close()
}

//Personal.AI order the ending
