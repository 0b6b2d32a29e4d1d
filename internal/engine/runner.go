// Package engine runs named work items on a bounded or unbounded worker pool,
// waiting on each with its own deadline and accounting for every item that
// was handed to a worker.
package engine

import (
	"context"
	"time"

	"github.com/turtacn/connprobe/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/connprobe/pkg/errors"
)

// DefaultDeadline is the per-item wait applied when Run gets a non-positive one.
const DefaultDeadline = 5 * time.Second

// Metrics receives per-item engine events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveSubmitted(pool string)
	ObserveOutcome(pool, kind string, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveSubmitted(string)                      {}
func (noopMetrics) ObserveOutcome(string, string, time.Duration) {}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Option configures a TaskRunner.
type Option func(*runnerConfig)

type runnerConfig struct {
	logger  logging.Logger
	metrics Metrics
	newPool func(PoolPolicy, int) pool
}

// WithLogger injects a logger.
func WithLogger(l logging.Logger) Option {
	return func(c *runnerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics injects a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *runnerConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// ---------------------------------------------------------------------------
// future
// ---------------------------------------------------------------------------

// future is the pending handle for one submitted item. Fields other than
// cancel are written by the worker before done is closed and read by the
// waiting goroutine only after.
type future[R any] struct {
	item   *WorkItem[R]
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	skipped bool
	result  R
	err     error
	elapsed time.Duration
}

func (f *future[R]) run() {
	defer close(f.done)
	if err := f.ctx.Err(); err != nil {
		f.skipped = true
		f.err = err
		return
	}
	start := time.Now()
	f.result, f.err = f.item.execute(f.ctx)
	f.elapsed = time.Since(start)
}

func (f *future[R]) resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// outcome converts a resolved future into an Outcome.
func (f *future[R]) outcome() Outcome[R] {
	o := Outcome[R]{Name: f.item.Name(), Elapsed: f.elapsed}
	switch {
	case f.skipped:
		o.Kind = KindCancelled
		o.Err = f.err
	case f.err != nil:
		o.Kind = KindExecutionFailure
		o.Err = f.err
	default:
		o.Kind = KindSuccess
		o.Result = f.result
	}
	return o
}

// ---------------------------------------------------------------------------
// TaskRunner
// ---------------------------------------------------------------------------

// TaskRunner submits work items to a pool and waits on each in submission
// order. It holds no per-run state and may be used by concurrent callers.
type TaskRunner[R any] struct {
	logger  logging.Logger
	metrics Metrics
	newPool func(PoolPolicy, int) pool
}

// NewTaskRunner builds a TaskRunner.
func NewTaskRunner[R any](opts ...Option) *TaskRunner[R] {
	cfg := &runnerConfig{
		logger:  logging.NewNopLogger(),
		metrics: noopMetrics{},
		newPool: newPool,
	}
	for _, o := range opts {
		o(cfg)
	}
	return &TaskRunner[R]{logger: cfg.logger, metrics: cfg.metrics, newPool: cfg.newPool}
}

// Run submits every item to a pool built from policy, then waits on each
// handle in submission order for at most deadline. A handle that misses its
// deadline is cancelled and recorded as timed out; every handle examined gets
// a full deadline of its own.
//
// Items whose submission fails are counted as failures and produce no
// outcome, so they stay in StateNotStarted. Run never returns NeverStarted
// outcomes and never panics.
func (r *TaskRunner[R]) Run(ctx context.Context, items []*WorkItem[R], policy PoolPolicy, deadline time.Duration) ([]Outcome[R], RunStatistics) {
	var stats RunStatistics
	if len(items) == 0 {
		return nil, stats
	}
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	label := policy.Label()
	log := r.logger.With(logging.String("pool", policy.String()))

	p := r.newPool(policy, len(items))
	futures := make([]*future[R], 0, len(items))
	outcomes := make([]Outcome[R], 0, len(items))

	defer func() {
		// Leftovers only exist when the loop was cut short; cancelling a
		// resolved handle just releases its context.
		for _, f := range futures {
			f.cancel()
		}
		p.shutdown()
	}()

	for _, item := range items {
		fctx, cancel := context.WithCancel(ctx)
		f := &future[R]{item: item, ctx: fctx, cancel: cancel, done: make(chan struct{})}
		if err := r.submit(p, f); err != nil {
			cancel()
			stats.Failed++
			log.Error("submit rejected", logging.Item(item.Name()), logging.Err(err))
			continue
		}
		stats.Submitted++
		r.metrics.ObserveSubmitted(label)
		futures = append(futures, f)
	}

	pending := make([]*future[R], len(futures))
	copy(pending, futures)

	for len(pending) > 0 {
		f := pending[0]
		pending = pending[1:]

		o, ok := r.settle(f, deadline, label, log)
		if !ok {
			stats.Failed++
			continue
		}
		switch o.Kind {
		case KindSuccess:
			stats.Succeeded++
		case KindTimedOut:
			stats.Failed++
			stats.TimedOut++
		default:
			stats.Failed++
		}
		outcomes = append(outcomes, o)
	}

	log.Debug("run finished", logging.String("stats", stats.String()))
	return outcomes, stats
}

// submit hands f to the pool, converting a panicking pool into an error.
func (r *TaskRunner[R]) submit(p pool, f *future[R]) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Newf(errors.ErrCodeSubmitRejected, "submit panicked: %v", rec)
		}
	}()
	return p.submit(f.run)
}

// settle waits on one handle and reports the outcome to metrics. ok is false
// when settling panicked; the handle is cancelled then and no outcome exists.
func (r *TaskRunner[R]) settle(f *future[R], deadline time.Duration, label string, log logging.Logger) (o Outcome[R], ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			f.cancel()
			log.Error("wait aborted", logging.Item(f.item.Name()),
				logging.Err(errors.Newf(errors.ErrCodeWaitAborted, "%v", rec)))
			ok = false
		}
	}()
	o = r.wait(f, deadline, log)
	r.metrics.ObserveOutcome(label, o.Kind.String(), o.Elapsed)
	return o, true
}

func (r *TaskRunner[R]) wait(f *future[R], deadline time.Duration, log logging.Logger) Outcome[R] {
	name := f.item.Name()
	if f.resolved() {
		return f.outcome()
	}
	if err := f.ctx.Err(); err != nil {
		f.cancel()
		return Outcome[R]{Name: name, Kind: KindCancelled, Err: err}
	}

	start := time.Now()
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.outcome()
	case <-timer.C:
		f.cancel()
		log.Warn("item timed out",
			logging.Item(name),
			logging.Duration("deadline", deadline),
			logging.String("state", f.item.State().String()))
		return Outcome[R]{
			Name:    name,
			Kind:    KindTimedOut,
			Err:     errors.Newf(errors.ErrCodeTimeout, "no result within %s", deadline),
			Elapsed: time.Since(start),
		}
	case <-f.ctx.Done():
		// The parent context went away. A worker may close done at the same
		// moment; its real result wins if so.
		if f.resolved() {
			return f.outcome()
		}
		f.cancel()
		log.Warn("wait interrupted", logging.Item(name), logging.Err(f.ctx.Err()))
		return Outcome[R]{Name: name, Kind: KindCancelled, Err: f.ctx.Err(), Elapsed: time.Since(start)}
	}
}

//Personal.AI order the ending
