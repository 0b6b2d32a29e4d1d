// Package postgres probes PostgreSQL endpoints through the pgx database/sql
// driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/pkg/errors"
)

const driverName = "pgx"

// sqlOpen is a variable to allow mocking in tests.
var sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// Connector probes one PostgreSQL endpoint.
//
// Options:
//   - sslmode: overrides the mode derived from TLS.
//   - migrations_table: when set, the secondary phase checks golang-migrate
//     state in that table instead of replica status.
type Connector struct {
	connector.Base
}

// New validates spec and returns a Connector.
func New(spec connector.Spec) (*Connector, error) {
	if strings.TrimSpace(spec.Endpoint) == "" {
		return nil, errors.New(errors.ErrCodeConnectorMisconf, "postgres endpoint is required").WithDetail(spec.Name)
	}
	return &Connector{Base: connector.Base{Spec: spec}}, nil
}

// Open creates a single-connection pool. No round trip happens until the
// connectivity phase.
func (c *Connector) Open(ctx context.Context) (connector.Session, error) {
	db, err := sqlOpen(driverName, buildDSN(c.Spec))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSessionOpenFailed, "failed to open postgres pool")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Minute)
	return &session{db: db, migrationsTable: c.Spec.Option("migrations_table", "")}, nil
}

type session struct {
	db              *sql.DB
	migrationsTable string
}

func (s *session) Connectivity(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeProbeUnreachable, "postgres ping failed")
	}
	return nil
}

func (s *session) Primary(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "SELECT 1 failed")
	}
	if one != 1 {
		return errors.Newf(errors.ErrCodeProbeBadResponse, "SELECT 1 returned %d", one)
	}
	return nil
}

// Secondary reports a read-only replica, or a dirty or empty migration
// history, as degraded.
func (s *session) Secondary(ctx context.Context) error {
	if s.migrationsTable != "" {
		return checkMigrations(s.db, s.migrationsTable)
	}
	var inRecovery bool
	if err := s.db.QueryRowContext(ctx, "SELECT pg_is_in_recovery()").Scan(&inRecovery); err != nil {
		return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "recovery status query failed")
	}
	if inRecovery {
		return errors.Degraded("server is a read-only replica")
	}
	return nil
}

func (s *session) Close() error {
	return s.db.Close()
}

// buildDSN constructs the connection URL. A full postgres:// URL in Endpoint
// is kept, with configured credentials taking precedence.
func buildDSN(spec connector.Spec) string {
	u := &url.URL{Scheme: "postgres", Host: spec.Endpoint, Path: spec.Database}
	if strings.Contains(spec.Endpoint, "://") {
		if parsed, err := url.Parse(spec.Endpoint); err == nil {
			u = parsed
		}
	}
	if spec.Username != "" {
		u.User = url.UserPassword(spec.Username, spec.Password)
	}
	if spec.Database != "" {
		u.Path = spec.Database
	}

	q := u.Query()
	mode := "disable"
	if spec.TLS {
		mode = "require"
	}
	if q.Get("sslmode") == "" || spec.Option("sslmode", "") != "" {
		q.Set("sslmode", spec.Option("sslmode", mode))
	}
	if spec.Timeout > 0 {
		secs := int(spec.Timeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		q.Set("connect_timeout", strconv.Itoa(secs))
		q.Set("statement_timeout", fmt.Sprintf("%d", spec.Timeout.Milliseconds()))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

//Personal.AI order the ending
