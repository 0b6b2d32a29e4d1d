package neo4j

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/pkg/errors"
)

const (
	defaultDatabase = "neo4j"
	systemDatabase  = "system"

	unauthorizedCode = "Neo.ClientError.Security.Unauthorized"
)

// Connector probes one Neo4j server or cluster. Endpoint is a neo4j://,
// neo4j+s:// or bolt:// URI; a bare host:port gets the neo4j scheme.
type Connector struct {
	connector.Base
	uri      string
	database string
}

// New validates spec and returns a Connector.
func New(spec connector.Spec) (*Connector, error) {
	endpoint := strings.TrimSpace(spec.Endpoint)
	if endpoint == "" {
		return nil, errors.New(errors.ErrCodeConnectorMisconf, "neo4j endpoint is required").WithDetail(spec.Name)
	}
	if !strings.Contains(endpoint, "://") {
		scheme := "neo4j://"
		if spec.TLS {
			scheme = "neo4j+s://"
		}
		endpoint = scheme + endpoint
	}
	db := spec.Database
	if db == "" {
		db = defaultDatabase
	}
	return &Connector{Base: connector.Base{Spec: spec}, uri: endpoint, database: db}, nil
}

func (c *Connector) Open(ctx context.Context) (connector.Session, error) {
	timeout := c.Spec.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d, err := newDriver(c.uri, c.Spec.Username, c.Spec.Password, timeout)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSessionOpenFailed, "failed to create neo4j driver").WithDetail(c.uri)
	}
	return &session{driver: d, database: c.database}, nil
}

type session struct {
	driver   internalDriver
	database string
}

func (s *session) Connectivity(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		var nerr *neo4j.Neo4jError
		if errors.As(err, &nerr) && nerr.Code == unauthorizedCode {
			return errors.Wrap(err, errors.ErrCodeProbeAuthFailed, "neo4j authentication failed")
		}
		return errors.Wrap(err, errors.ErrCodeProbeUnreachable, "neo4j connectivity check failed")
	}
	return nil
}

// Primary runs RETURN 1 against the configured database.
func (s *session) Primary(ctx context.Context) error {
	got, err := s.read(ctx, s.database, func(tx Transaction) (any, error) {
		result, err := tx.Run(ctx, "RETURN 1 AS health", nil)
		if err != nil {
			return nil, err
		}
		values, err := collect(ctx, result, func(r *neo4j.Record) (any, error) {
			v, _ := r.Get("health")
			return v, nil
		})
		if err != nil || len(values) == 0 {
			return nil, err
		}
		return values[0], nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "neo4j read query failed").WithDetail(s.database)
	}
	if v, ok := got.(int64); !ok || v != 1 {
		return errors.Newf(errors.ErrCodeProbeBadResponse, "RETURN 1 yielded %v", got)
	}
	return nil
}

// Secondary asks the system database for the status of the configured
// database. Any status other than online is degraded.
func (s *session) Secondary(ctx context.Context) error {
	got, err := s.read(ctx, systemDatabase, func(tx Transaction) (any, error) {
		result, err := tx.Run(ctx, "SHOW DATABASES YIELD name, currentStatus WHERE name = $name RETURN currentStatus",
			map[string]any{"name": s.database})
		if err != nil {
			return nil, err
		}
		return collect(ctx, result, func(r *neo4j.Record) (string, error) {
			v, _ := r.Get("currentStatus")
			status, _ := v.(string)
			return status, nil
		})
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "SHOW DATABASES failed")
	}
	statuses, _ := got.([]string)
	if len(statuses) == 0 {
		return errors.New(errors.ErrCodeProbeBadResponse, "database not found").WithDetail(s.database)
	}
	for _, st := range statuses {
		if st != "online" {
			return errors.Degraded(fmt.Sprintf("database %s is %s", s.database, st))
		}
	}
	return nil
}

func (s *session) Close() error {
	return s.driver.Close(context.Background())
}

func (s *session) read(ctx context.Context, database string, work func(Transaction) (any, error)) (any, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: database, AccessMode: neo4j.AccessModeRead})
	defer sess.Close(ctx)
	return sess.ExecuteRead(ctx, work)
}

//Personal.AI order the ending
