package healthcheck

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/internal/engine"
	"github.com/turtacn/connprobe/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/connprobe/pkg/errors"
)

// HealthReport is a batch report over connectors.
type HealthReport = Report[connector.Health]

// Catalog resolves configured connectors by name, case-insensitively.
type Catalog interface {
	Lookup(name string) (connector.Connector, bool)
	Names() []string
}

// HealthPublisher receives the latest status of every probed connector.
type HealthPublisher interface {
	SetConnectorHealth(name, kind, status string, latency time.Duration)
	ForgetConnector(name, kind string)
}

// ReportListener is notified after every completed batch.
type ReportListener func(*HealthReport)

// Service checks configured connectors and keeps the latest report.
type Service struct {
	mu        sync.RWMutex
	catalog   Catalog
	listeners []ReportListener

	coordinator *BatchCoordinator[connector.Health]
	publisher   HealthPublisher
	latest      atomic.Pointer[HealthReport]
	flight      singleflight.Group
	logger      logging.Logger
	now         func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPublisher sets where per-connector status goes after each batch.
func WithPublisher(p HealthPublisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// WithServiceLogger injects a logger.
func WithServiceLogger(l logging.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithServiceClock overrides time.Now for probe timestamps.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithListener registers a ReportListener.
func WithListener(l ReportListener) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.listeners = append(s.listeners, l)
		}
	}
}

// NewService builds a Service over catalog. coordOpts tune the engine.
func NewService(catalog Catalog, opts []ServiceOption, coordOpts ...CoordinatorOption) *Service {
	s := &Service{
		catalog: catalog,
		logger:  logging.NewNopLogger(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	coordOpts = append([]CoordinatorOption{WithCoordinatorLogger(s.logger), WithClock(s.now)}, coordOpts...)
	s.coordinator = NewBatchCoordinator(s.workItem, s.fallbackFor, coordOpts...)
	return s
}

// Coordinator exposes the underlying coordinator.
func (s *Service) Coordinator() *BatchCoordinator[connector.Health] { return s.coordinator }

// fullCheckKey keys the shared full-catalog batch.
const fullCheckKey = "\x00all"

// Check probes the named connectors, or every configured connector when
// names is empty. Overlapping full checks share one batch, detached from
// any caller's cancellation and bounded by sharedBatchTimeout; a caller
// whose ctx ends first returns ErrCodeCancelled without waiting.
func (s *Service) Check(ctx context.Context, names []string) (*HealthReport, error) {
	if len(names) > 0 {
		return s.run(ctx, names)
	}
	ch := s.flight.DoChan(fullCheckKey, func() (interface{}, error) {
		all := s.currentCatalog().Names()
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sharedBatchTimeout(len(all)))
		defer cancel()
		return s.run(runCtx, all)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*HealthReport), nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.ErrCodeCancelled, "check cancelled")
	}
}

// sharedBatchTimeout covers both passes giving every item a full deadline.
func (s *Service) sharedBatchTimeout(items int) time.Duration {
	return s.coordinator.Deadline() * time.Duration(2*items+1)
}

// run executes one batch. A report from a batch whose ctx ended is returned
// to the caller but never becomes Latest nor reaches publishers.
func (s *Service) run(ctx context.Context, names []string) (*HealthReport, error) {
	report, err := s.coordinator.RunBatch(ctx, names)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		s.logger.Warn("batch interrupted, keeping previous report",
			logging.String("batch_id", report.BatchID),
			logging.Err(ctx.Err()))
		return report, nil
	}
	s.latest.Store(report)
	s.publish(report)

	s.mu.RLock()
	listeners := append([]ReportListener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		l(report)
	}
	return report, nil
}

// Latest returns the most recent report, if any.
func (s *Service) Latest() (*HealthReport, bool) {
	r := s.latest.Load()
	return r, r != nil
}

// Connectors lists the configured connectors in catalog order.
func (s *Service) Connectors() []connector.Connector {
	cat := s.currentCatalog()
	names := cat.Names()
	out := make([]connector.Connector, 0, len(names))
	for _, n := range names {
		if c, ok := cat.Lookup(n); ok {
			out = append(out, c)
		}
	}
	return out
}

// SetCatalog swaps the connector set used by later batches. Metric series of
// connectors that disappeared are dropped.
func (s *Service) SetCatalog(c Catalog) {
	s.mu.Lock()
	old := s.catalog
	s.catalog = c
	s.mu.Unlock()

	if s.publisher == nil || old == nil || c == nil {
		return
	}
	for _, n := range old.Names() {
		if _, ok := c.Lookup(n); ok {
			continue
		}
		if prev, ok := old.Lookup(n); ok {
			s.publisher.ForgetConnector(prev.Name(), string(prev.Kind()))
		}
	}
	s.logger.Info("connector catalog replaced", logging.Int("connectors", len(c.Names())))
}

// OnReport registers a listener after construction.
func (s *Service) OnReport(l ReportListener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Schedule runs a full check every interval until ctx ends. Batch errors are
// logged and the schedule continues.
func (s *Service) Schedule(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Check(ctx, nil); err != nil {
			s.logger.Warn("scheduled check failed", logging.Err(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) currentCatalog() Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.catalog == nil {
		return emptyCatalog{}
	}
	return s.catalog
}

type emptyCatalog struct{}

func (emptyCatalog) Lookup(string) (connector.Connector, bool) { return nil, false }
func (emptyCatalog) Names() []string                          { return nil }

func (s *Service) workItem(name string) *engine.WorkItem[connector.Health] {
	cat := s.currentCatalog()
	return engine.NewWorkItem(name, func(ctx context.Context) (connector.Health, error) {
		c, ok := cat.Lookup(name)
		if !ok {
			return connector.Health{}, errors.Newf(errors.ErrCodeConnectorUnknown, "connector %q is not configured", name)
		}
		return Probe(ctx, c, s.now, s.logger)
	})
}

func (s *Service) fallbackFor(name string, o engine.Outcome[connector.Health]) connector.Health {
	var kind connector.Kind
	if c, ok := s.currentCatalog().Lookup(name); ok {
		kind = c.Kind()
		name = c.Name()
	}
	detail := o.Kind.String()
	if o.Err != nil {
		detail = o.Err.Error()
	}
	return connector.Unavailable(name, kind, o.Kind.String(), detail, s.now())
}

func (s *Service) publish(r *HealthReport) {
	if s.publisher == nil {
		return
	}
	for _, h := range r.Results {
		s.publisher.SetConnectorHealth(h.Name, string(h.Kind), string(h.Overall()), h.Latency)
	}
}

//Personal.AI order the ending
