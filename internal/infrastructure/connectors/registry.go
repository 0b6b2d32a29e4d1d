// Package connectors maps connector kinds to driver factories and resolves
// configured specs into a Catalog the health-check service can probe.
package connectors

import (
	"sort"
	"strings"
	"sync"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/internal/infrastructure/database/neo4j"
	"github.com/turtacn/connprobe/internal/infrastructure/database/postgres"
	"github.com/turtacn/connprobe/internal/infrastructure/database/redis"
	"github.com/turtacn/connprobe/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/connprobe/internal/infrastructure/search/milvus"
	"github.com/turtacn/connprobe/internal/infrastructure/search/opensearch"
	"github.com/turtacn/connprobe/internal/infrastructure/storage/minio"
	"github.com/turtacn/connprobe/internal/infrastructure/transport/grpchealth"
	"github.com/turtacn/connprobe/internal/infrastructure/transport/httpcheck"
	"github.com/turtacn/connprobe/pkg/errors"
)

// Factory builds a Connector from a validated spec.
type Factory func(spec connector.Spec) (connector.Connector, error)

// Registry holds the factories known for each connector kind.
type Registry struct {
	mu        sync.RWMutex
	factories map[connector.Kind]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[connector.Kind]Factory)}
}

// DefaultRegistry returns a registry with every built-in driver.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(connector.KindPostgres, adapt(postgres.New))
	r.Register(connector.KindRedis, adapt(redis.New))
	r.Register(connector.KindNeo4j, adapt(neo4j.New))
	r.Register(connector.KindMinIO, adapt(minio.New))
	r.Register(connector.KindOpenSearch, adapt(opensearch.New))
	r.Register(connector.KindMilvus, adapt(milvus.New))
	r.Register(connector.KindKafka, adapt(kafka.New))
	r.Register(connector.KindGRPC, adapt(grpchealth.New))
	r.Register(connector.KindHTTP, adapt(httpcheck.New))
	return r
}

func adapt[C connector.Connector](fn func(connector.Spec) (C, error)) Factory {
	return func(spec connector.Spec) (connector.Connector, error) {
		c, err := fn(spec)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind connector.Kind, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalizeKind(kind)] = f
}

// Supports reports whether kind has a factory.
func (r *Registry) Supports(kind connector.Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[normalizeKind(kind)]
	return ok
}

// Kinds lists the registered kinds, sorted.
func (r *Registry) Kinds() []connector.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]connector.Kind, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Build resolves specs into a Catalog. Names must be unique ignoring case;
// the catalog keeps the configured order.
func (r *Registry) Build(specs []connector.Spec) (*Catalog, error) {
	cat := &Catalog{byKey: make(map[string]connector.Connector, len(specs))}
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, errors.New(errors.ErrCodeConnectorMisconf, "connector name is required")
		}
		key := strings.ToLower(name)
		if _, dup := cat.byKey[key]; dup {
			return nil, errors.Conflict("duplicate connector name").WithDetail(name)
		}

		spec.Name = name
		spec.Kind = normalizeKind(spec.Kind)
		r.mu.RLock()
		f, ok := r.factories[spec.Kind]
		r.mu.RUnlock()
		if !ok {
			return nil, errors.Newf(errors.ErrCodeConnectorMisconf, "unsupported connector kind %q", spec.Kind).WithDetail(name)
		}
		c, err := f(spec)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeUnknown, "connector %s", name)
		}
		cat.byKey[key] = c
		cat.names = append(cat.names, name)
	}
	return cat, nil
}

func normalizeKind(k connector.Kind) connector.Kind {
	return connector.Kind(strings.ToLower(strings.TrimSpace(string(k))))
}

// Catalog is an immutable, ordered set of connectors.
type Catalog struct {
	names []string
	byKey map[string]connector.Connector
}

// Lookup finds a connector by name, ignoring case.
func (c *Catalog) Lookup(name string) (connector.Connector, bool) {
	if c == nil {
		return nil, false
	}
	conn, ok := c.byKey[strings.ToLower(strings.TrimSpace(name))]
	return conn, ok
}

// Names returns the configured names in order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.names...)
}

// Len is the number of connectors.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

//Personal.AI order the ending
