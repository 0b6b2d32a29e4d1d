package healthcheck

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/turtacn/connprobe/internal/domain/connector"
)

// fakeConnector is a scripted connector for tests.
type fakeConnector struct {
	name    string
	kind    connector.Kind
	openErr error
	errs    [3]error      // connectivity, primary, secondary
	delay   time.Duration // per phase, honours ctx

	opened  atomic.Int32
	closed  atomic.Int32
	phases  atomic.Int32
	onPhase func(i int)
}

func (f *fakeConnector) Name() string        { return f.name }
func (f *fakeConnector) Kind() connector.Kind { return f.kind }

func (f *fakeConnector) Open(ctx context.Context) (connector.Session, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened.Add(1)
	return &fakeSession{f: f}, nil
}

type fakeSession struct{ f *fakeConnector }

func (s *fakeSession) step(ctx context.Context, i int) error {
	s.f.phases.Add(1)
	if s.f.onPhase != nil {
		s.f.onPhase(i)
	}
	if s.f.delay > 0 {
		select {
		case <-time.After(s.f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.f.errs[i]
}

func (s *fakeSession) Connectivity(ctx context.Context) error { return s.step(ctx, 0) }
func (s *fakeSession) Primary(ctx context.Context) error      { return s.step(ctx, 1) }
func (s *fakeSession) Secondary(ctx context.Context) error    { return s.step(ctx, 2) }
func (s *fakeSession) Close() error {
	s.f.closed.Add(1)
	return nil
}

// fakeCatalog keeps insertion order and matches names case-insensitively.
type fakeCatalog struct {
	mu    sync.Mutex
	order []string
	byKey map[string]connector.Connector
}

func newFakeCatalog(cs ...connector.Connector) *fakeCatalog {
	c := &fakeCatalog{byKey: map[string]connector.Connector{}}
	for _, x := range cs {
		c.order = append(c.order, x.Name())
		c.byKey[strings.ToLower(x.Name())] = x
	}
	return c
}

func (c *fakeCatalog) Lookup(name string) (connector.Connector, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	x, ok := c.byKey[connector.NormalizeName(name)]
	return x, ok
}

func (c *fakeCatalog) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

type publishedHealth struct {
	kind, status string
}

type fakePublisher struct {
	mu        sync.Mutex
	health    map[string]publishedHealth
	forgotten []string
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{health: map[string]publishedHealth{}}
}

func (p *fakePublisher) SetConnectorHealth(name, kind, status string, _ time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.health[name] = publishedHealth{kind: kind, status: status}
}

func (p *fakePublisher) ForgetConnector(name, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forgotten = append(p.forgotten, name)
}

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

//Personal.AI order the ending
