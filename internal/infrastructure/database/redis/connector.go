// Package redis probes Redis endpoints in standalone, sentinel or cluster
// mode through go-redis.
package redis

import (
	"bufio"
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/internal/infrastructure/tlsconf"
	"github.com/turtacn/connprobe/pkg/errors"
)

const (
	defaultProbeKey = "connprobe:probe"
	probeValue      = "connprobe"
	probeTTL        = 30 * time.Second
)

// newUniversalClient is a variable to allow mocking in tests.
var newUniversalClient = func(opts *redis.UniversalOptions) redis.UniversalClient {
	return redis.NewUniversalClient(opts)
}

// Connector probes one Redis deployment. Endpoint is a comma-separated
// address list; more than one address selects cluster mode unless
// master_name is set, which selects sentinel mode.
//
// Options: master_name, db, probe_key.
type Connector struct {
	connector.Base
	opts     *redis.UniversalOptions
	probeKey string
}

// New validates spec and returns a Connector.
func New(spec connector.Spec) (*Connector, error) {
	addrs := splitAddrs(spec.Endpoint)
	if len(addrs) == 0 {
		return nil, errors.New(errors.ErrCodeConnectorMisconf, "redis endpoint is required").WithDetail(spec.Name)
	}
	db, err := strconv.Atoi(spec.Option("db", "0"))
	if err != nil || db < 0 {
		return nil, errors.New(errors.ErrCodeConnectorMisconf, "redis db must be a non-negative integer").WithDetail(spec.Name)
	}
	tlsCfg, err := tlsconf.FromSpec(spec)
	if err != nil {
		return nil, err
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts := &redis.UniversalOptions{
		Addrs:        addrs,
		MasterName:   spec.Option("master_name", ""),
		Username:     spec.Username,
		Password:     spec.Password,
		DB:           db,
		PoolSize:     1,
		MaxRetries:   -1,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		TLSConfig:    tlsCfg,
	}
	return &Connector{
		Base:     connector.Base{Spec: spec},
		opts:     opts,
		probeKey: spec.Option("probe_key", defaultProbeKey+":"+connector.NormalizeName(spec.Name)),
	}, nil
}

// Open builds a client. go-redis dials lazily, so failures surface in the
// connectivity phase.
func (c *Connector) Open(ctx context.Context) (connector.Session, error) {
	return &session{rdb: newUniversalClient(c.opts), key: c.probeKey}, nil
}

type session struct {
	rdb redis.UniversalClient
	key string
}

func (s *session) Connectivity(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		if isAuthError(err) {
			return errors.Wrap(err, errors.ErrCodeProbeAuthFailed, "redis authentication failed")
		}
		return errors.Wrap(err, errors.ErrCodeProbeUnreachable, "redis PING failed")
	}
	return nil
}

// Primary writes, reads back and deletes the probe key.
func (s *session) Primary(ctx context.Context) error {
	if err := s.rdb.Set(ctx, s.key, probeValue, probeTTL).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "redis SET failed").WithDetail(s.key)
	}
	got, err := s.rdb.Get(ctx, s.key).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "redis GET failed").WithDetail(s.key)
	}
	if got != probeValue {
		return errors.New(errors.ErrCodeProbeBadResponse, "redis returned a different value").WithDetail(s.key)
	}
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return errors.Degraded("probe key not removed").WithCause(err).WithDetail(s.key)
	}
	return nil
}

// Secondary parses INFO server, replication and persistence. A replica whose
// link to the master is down, or a dataset still loading, is degraded.
func (s *session) Secondary(ctx context.Context) error {
	raw, err := s.rdb.Info(ctx, "server", "replication", "persistence").Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "redis INFO failed")
	}
	info := parseInfo(raw)
	if info["redis_version"] == "" {
		return errors.New(errors.ErrCodeProbeBadResponse, "INFO server did not report redis_version")
	}
	if info["role"] == "slave" && info["master_link_status"] != "up" {
		return errors.Degraded("replica lost its master link").WithDetail("master_link_status=" + info["master_link_status"])
	}
	if info["loading"] == "1" {
		return errors.Degraded("dataset is still loading")
	}
	return nil
}

func (s *session) Close() error {
	return s.rdb.Close()
}

// parseInfo reads "key:value" lines, skipping section headers.
func parseInfo(raw string) map[string]string {
	out := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			out[k] = v
		}
	}
	return out
}

func splitAddrs(endpoint string) []string {
	var out []string
	for _, a := range strings.Split(endpoint, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func isAuthError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "NOAUTH") || strings.HasPrefix(msg, "WRONGPASS")
}

//Personal.AI order the ending
