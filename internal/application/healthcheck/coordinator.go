// Package healthcheck runs batches of connector probes through the engine in
// two passes and turns whatever comes back into exactly one health record per
// requested connector.
package healthcheck

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/internal/engine"
	"github.com/turtacn/connprobe/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/connprobe/pkg/errors"
)

// ItemFactory builds the WorkItem for one requested name.
type ItemFactory[R any] func(name string) *engine.WorkItem[R]

// FallbackFunc builds the deterministic record for a name that has no
// successful outcome. o.Kind says why.
type FallbackFunc[R any] func(name string, o engine.Outcome[R]) R

// BatchMetrics receives batch-level events.
type BatchMetrics interface {
	ObserveBatch(passes int, resubmitted int, elapsed time.Duration)
	ObserveFallback(reason string)
}

type noopBatchMetrics struct{}

func (noopBatchMetrics) ObserveBatch(int, int, time.Duration) {}
func (noopBatchMetrics) ObserveFallback(string)               {}

// Report is the result of one batch. Results and Outcomes are aligned with
// the requested names.
type Report[R any] struct {
	BatchID     string               `json:"batch_id"`
	Requested   []string             `json:"requested"`
	Results     []R                  `json:"results"`
	Count       int                  `json:"count"`
	Outcomes    []engine.OutcomeKind `json:"outcomes"`
	Pass1       engine.RunStatistics `json:"pass1"`
	Pass2       engine.RunStatistics `json:"pass2"`
	Passes      int                  `json:"passes"`
	Resubmitted []string             `json:"resubmitted,omitempty"`
	StartedAt   time.Time            `json:"started_at"`
	FinishedAt  time.Time            `json:"finished_at"`
}

// Fallbacks is the number of results that did not come from a successful
// outcome.
func (r *Report[R]) Fallbacks() int {
	n := 0
	for _, k := range r.Outcomes {
		if k != engine.KindSuccess {
			n++
		}
	}
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Options
// ─────────────────────────────────────────────────────────────────────────────

// CoordinatorOption configures a BatchCoordinator.
type CoordinatorOption func(*coordinatorConfig)

type coordinatorConfig struct {
	concurrency  int
	deadline     time.Duration
	logger       logging.Logger
	metrics      BatchMetrics
	engineMetric engine.Metrics
	now          func() time.Time
}

// WithConcurrency sets the pass-1 worker count. Values below 1 keep the default.
func WithConcurrency(n int) CoordinatorOption {
	return func(c *coordinatorConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithDeadline sets the per-item wait. Non-positive values keep the default.
func WithDeadline(d time.Duration) CoordinatorOption {
	return func(c *coordinatorConfig) {
		if d > 0 {
			c.deadline = d
		}
	}
}

// WithCoordinatorLogger injects a logger.
func WithCoordinatorLogger(l logging.Logger) CoordinatorOption {
	return func(c *coordinatorConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBatchMetrics injects batch metrics.
func WithBatchMetrics(m BatchMetrics) CoordinatorOption {
	return func(c *coordinatorConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithEngineMetrics injects per-item engine metrics.
func WithEngineMetrics(m engine.Metrics) CoordinatorOption {
	return func(c *coordinatorConfig) {
		if m != nil {
			c.engineMetric = m
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *coordinatorConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// BatchCoordinator
// ─────────────────────────────────────────────────────────────────────────────

// BatchCoordinator runs a batch on a fixed pool, resubmits starved items on an
// unbounded pool, and reconciles the outcomes of both passes against the
// requested names.
type BatchCoordinator[R any] struct {
	runner      *engine.TaskRunner[R]
	factory     ItemFactory[R]
	fallback    FallbackFunc[R]
	concurrency int
	deadline    time.Duration
	logger      logging.Logger
	metrics     BatchMetrics
	now         func() time.Time
}

// NewBatchCoordinator builds a coordinator. Concurrency defaults to
// engine.DefaultConcurrency and the per-item deadline to engine.DefaultDeadline.
func NewBatchCoordinator[R any](factory ItemFactory[R], fallback FallbackFunc[R], opts ...CoordinatorOption) *BatchCoordinator[R] {
	cfg := &coordinatorConfig{
		concurrency: engine.DefaultConcurrency(),
		deadline:    engine.DefaultDeadline,
		logger:      logging.NewNopLogger(),
		metrics:     noopBatchMetrics{},
		now:         time.Now,
	}
	for _, o := range opts {
		o(cfg)
	}
	log := cfg.logger.Named("coordinator")
	runnerOpts := []engine.Option{engine.WithLogger(cfg.logger.Named("engine"))}
	if cfg.engineMetric != nil {
		runnerOpts = append(runnerOpts, engine.WithMetrics(cfg.engineMetric))
	}
	return &BatchCoordinator[R]{
		runner:      engine.NewTaskRunner[R](runnerOpts...),
		factory:     factory,
		fallback:    fallback,
		concurrency: cfg.concurrency,
		deadline:    cfg.deadline,
		logger:      log,
		metrics:     cfg.metrics,
		now:         cfg.now,
	}
}

// Concurrency returns the pass-1 worker count.
func (c *BatchCoordinator[R]) Concurrency() int { return c.concurrency }

// Deadline returns the per-item wait.
func (c *BatchCoordinator[R]) Deadline() time.Duration { return c.deadline }

// RunBatch probes every name and returns one result per name in request
// order. Partial failures never produce an error; only an invalid name list
// does.
func (c *BatchCoordinator[R]) RunBatch(ctx context.Context, names []string) (*Report[R], error) {
	if err := validateNames(names); err != nil {
		return nil, err
	}

	report := &Report[R]{
		BatchID:   uuid.NewString(),
		Requested: append([]string(nil), names...),
		StartedAt: c.now(),
		Passes:    1,
	}
	log := c.logger.With(logging.String("batch_id", report.BatchID))

	items := make([]*engine.WorkItem[R], len(names))
	for i, name := range names {
		items[i] = c.factory(name)
	}

	final := make(map[string]engine.Outcome[R], len(names))
	record := func(outcomes []engine.Outcome[R]) {
		for _, o := range outcomes {
			final[connector.NormalizeName(o.Name)] = o
		}
	}

	outcomes, stats := c.runner.Run(ctx, items, engine.Fixed(c.concurrency), c.deadline)
	record(outcomes)
	report.Pass1 = stats
	log.Info("pass finished", logging.Pass(1), logging.String("stats", stats.String()))

	var starved []*engine.WorkItem[R]
	for _, it := range items {
		if !it.Started() {
			starved = append(starved, it)
			report.Resubmitted = append(report.Resubmitted, it.Name())
		}
	}
	if len(starved) > 0 {
		report.Passes = 2
		log.Warn("resubmitting starved items", logging.Pass(2), logging.Strings("items", report.Resubmitted))
		outcomes, stats = c.runner.Run(ctx, starved, engine.Unbounded(), c.deadline)
		record(outcomes)
		report.Pass2 = stats
		log.Info("pass finished", logging.Pass(2), logging.String("stats", stats.String()))
	}

	report.Results = make([]R, len(names))
	report.Outcomes = make([]engine.OutcomeKind, len(names))
	for i, name := range names {
		o, ok := final[connector.NormalizeName(name)]
		switch {
		case !items[i].Started():
			o = engine.NeverStartedOutcome[R](name)
		case !ok:
			// Started but unaccounted for, which only happens when a wait
			// was aborted.
			o = engine.Outcome[R]{Name: name, Kind: engine.KindExecutionFailure,
				Err: errors.New(errors.ErrCodeWaitAborted, "no outcome recorded")}
		}
		report.Outcomes[i] = o.Kind
		if o.Kind == engine.KindSuccess {
			report.Results[i] = o.Result
			continue
		}
		report.Results[i] = c.fallback(name, o)
		c.metrics.ObserveFallback(o.Kind.String())
		log.Debug("fallback record", logging.Item(name), logging.String("reason", o.Kind.String()), logging.Err(o.Err))
	}
	report.Count = len(report.Results)
	report.FinishedAt = c.now()

	c.metrics.ObserveBatch(report.Passes, len(report.Resubmitted), report.FinishedAt.Sub(report.StartedAt))
	log.Info("batch finished",
		logging.Int("count", report.Count),
		logging.Int("fallbacks", report.Fallbacks()),
		logging.Int("passes", report.Passes))
	return report, nil
}

// validateNames rejects empty lists, blank names and case-insensitive
// duplicates.
func validateNames(names []string) error {
	if len(names) == 0 {
		return errors.InvalidParam("at least one connector name is required")
	}
	seen := make(map[string]string, len(names))
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return errors.InvalidParam("connector name must not be blank").
				WithDetail("index=" + strconv.Itoa(i))
		}
		key := connector.NormalizeName(name)
		if prev, ok := seen[key]; ok {
			return errors.InvalidParam("duplicate connector name").
				WithDetail(prev + " and " + name)
		}
		seen[key] = name
	}
	return nil
}

//Personal.AI order the ending
