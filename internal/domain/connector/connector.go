package connector

import (
	"context"
	"strings"
	"time"
)

// Kind names a connector driver.
type Kind string

const (
	KindPostgres   Kind = "postgres"
	KindRedis      Kind = "redis"
	KindNeo4j      Kind = "neo4j"
	KindMinIO      Kind = "minio"
	KindOpenSearch Kind = "opensearch"
	KindMilvus     Kind = "milvus"
	KindKafka      Kind = "kafka"
	KindGRPC       Kind = "grpc"
	KindHTTP       Kind = "http"
)

var builtinKinds = []Kind{
	KindPostgres, KindRedis, KindNeo4j, KindMinIO, KindOpenSearch,
	KindMilvus, KindKafka, KindGRPC, KindHTTP,
}

// Kinds lists the built-in driver kinds.
func Kinds() []Kind { return append([]Kind(nil), builtinKinds...) }

// ParseKind matches s against the built-in kinds, ignoring case.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range builtinKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Spec is the driver-independent description of one configured connector.
type Spec struct {
	Name     string
	Kind     Kind
	Endpoint string
	Username string
	Password string
	Database string
	TLS      bool
	Timeout  time.Duration

	// Options holds driver-specific settings such as bucket or topic lists.
	Options map[string]string
}

// Option returns Options[key] or def when absent.
func (s Spec) Option(key, def string) string {
	if v, ok := s.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// OptionList splits a comma-separated option into trimmed, non-empty values.
func (s Spec) OptionList(key string) []string {
	raw := s.Option(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Session is an isolated, short-lived handle on one endpoint. The three
// phases run in order; Close is always called once the probe ends.
type Session interface {
	// Connectivity checks the endpoint answers at all.
	Connectivity(ctx context.Context) error
	// Primary exercises the main capability (a query, a read, a list).
	Primary(ctx context.Context) error
	// Secondary checks a deeper property (schema, replication, cluster state).
	Secondary(ctx context.Context) error
	Close() error
}

// Connector opens sessions against one configured endpoint.
type Connector interface {
	Name() string
	Kind() Kind
	Open(ctx context.Context) (Session, error)
}

// Base carries the Spec and answers Name and Kind. Drivers embed it.
type Base struct {
	Spec Spec
}

func (b Base) Name() string { return b.Spec.Name }
func (b Base) Kind() Kind   { return b.Spec.Kind }

//Personal.AI order the ending
