// Package kafka probes Kafka clusters with segmentio/kafka-go.
package kafka

import (
	"context"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/internal/infrastructure/tlsconf"
	"github.com/turtacn/connprobe/pkg/errors"
)

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Controller() (kafka.Broker, error)
	SetDeadline(t time.Time) error
	Close() error
}

// dial is a variable to allow mocking in tests.
var dial = func(ctx context.Context, d *kafka.Dialer, address string) (ConnInterface, error) {
	return d.DialContext(ctx, "tcp", address)
}

// Connector probes one Kafka cluster. Endpoint is a comma-separated
// bootstrap broker list.
//
// Options: topics (comma-separated, must exist with a leader on every
// partition), sasl_mechanism (PLAIN, SCRAM-SHA-256, SCRAM-SHA-512; uses
// Username and Password).
type Connector struct {
	connector.Base
	brokers []string
	topics  []string
	dialer  *kafka.Dialer
}

// New validates spec and builds the dialer.
func New(spec connector.Spec) (*Connector, error) {
	var brokers []string
	for _, b := range strings.Split(spec.Endpoint, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeConnectorMisconf, "kafka endpoint is required").WithDetail(spec.Name)
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dialer := &kafka.Dialer{Timeout: timeout, DualStack: true, ClientID: "connprobe"}

	tlsCfg, err := tlsconf.FromSpec(spec)
	if err != nil {
		return nil, err
	}
	dialer.TLS = tlsCfg

	if mechName := spec.Option("sasl_mechanism", ""); mechName != "" {
		mech, err := saslMechanism(mechName, spec.Username, spec.Password)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConnectorMisconf, "invalid sasl settings").WithDetail(spec.Name)
		}
		dialer.SASLMechanism = mech
	}

	return &Connector{
		Base:    connector.Base{Spec: spec},
		brokers: brokers,
		topics:  spec.OptionList("topics"),
		dialer:  dialer,
	}, nil
}

func saslMechanism(name, username, password string) (sasl.Mechanism, error) {
	switch strings.ToUpper(name) {
	case "PLAIN":
		return plain.Mechanism{Username: username, Password: password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, username, password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, username, password)
	default:
		return nil, errors.New(errors.ErrCodeConnectorMisconf, "unsupported sasl mechanism").WithDetail(name)
	}
}

// Open defers dialing to the connectivity phase.
func (c *Connector) Open(ctx context.Context) (connector.Session, error) {
	return &session{brokers: c.brokers, topics: c.topics, dialer: c.dialer}, nil
}

type session struct {
	brokers []string
	topics  []string
	dialer  *kafka.Dialer

	conn       ConnInterface
	leaderless []string
}

// Connectivity dials the bootstrap brokers in order and keeps the first
// connection that succeeds.
func (s *session) Connectivity(ctx context.Context) error {
	var lastErr error
	for _, b := range s.brokers {
		conn, err := dial(ctx, s.dialer, b)
		if err != nil {
			lastErr = err
			continue
		}
		s.conn = conn
		return nil
	}
	return errors.Wrap(lastErr, errors.ErrCodeProbeUnreachable, "no bootstrap broker reachable").
		WithDetail(strings.Join(s.brokers, ","))
}

// Primary reads partition metadata for the configured topics, or for the
// whole cluster when none are configured.
func (s *session) Primary(ctx context.Context) error {
	if err := s.deadline(ctx); err != nil {
		return err
	}
	parts, err := s.conn.ReadPartitions(s.topics...)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "failed to read partition metadata")
	}

	seen := make(map[string]bool, len(parts))
	leaderless := make(map[string]bool)
	for _, p := range parts {
		seen[p.Topic] = true
		if p.Leader.Host == "" {
			leaderless[p.Topic] = true
		}
	}
	var missing []string
	for _, t := range s.topics {
		if !seen[t] {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return errors.New(errors.ErrCodeProbeBadResponse, "topics missing").WithDetail(strings.Join(missing, ","))
	}
	s.leaderless = s.leaderless[:0]
	for t := range leaderless {
		s.leaderless = append(s.leaderless, t)
	}
	sort.Strings(s.leaderless)
	return nil
}

// Secondary dials the controller. Partitions without a leader, or an
// unreachable controller, are degraded.
func (s *session) Secondary(ctx context.Context) error {
	if err := s.deadline(ctx); err != nil {
		return err
	}
	ctrl, err := s.conn.Controller()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "controller lookup failed")
	}
	addr := net.JoinHostPort(ctrl.Host, strconv.Itoa(ctrl.Port))
	cc, err := dial(ctx, s.dialer, addr)
	if err != nil {
		return errors.Degraded("controller unreachable").WithCause(err).WithDetail(addr)
	}
	_ = cc.Close()

	if len(s.leaderless) > 0 {
		return errors.Degraded("partitions without a leader").WithDetail(strings.Join(s.leaderless, ","))
	}
	return nil
}

func (s *session) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// deadline applies ctx's deadline to the connection; kafka.Conn calls do not
// take a context.
func (s *session) deadline(ctx context.Context) error {
	if s.conn == nil {
		return errors.New(errors.ErrCodeProbeUnreachable, "no broker connection")
	}
	if dl, ok := ctx.Deadline(); ok {
		return s.conn.SetDeadline(dl)
	}
	return s.conn.SetDeadline(time.Time{})
}

//Personal.AI order the ending
