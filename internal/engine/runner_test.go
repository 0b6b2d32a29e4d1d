package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/connprobe/pkg/errors"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// sleeper returns a body that finishes after d or when ctx is done.
func sleeper(d time.Duration, val string) InvokeFunc[string] {
	return func(ctx context.Context) (string, error) {
		select {
		case <-time.After(d):
			return val, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// stubborn returns a body that ignores ctx and blocks until release closes.
func stubborn(release <-chan struct{}) InvokeFunc[string] {
	return func(ctx context.Context) (string, error) {
		<-release
		return "late", nil
	}
}

func itemsOf(n int, body func(i int) InvokeFunc[string]) []*WorkItem[string] {
	items := make([]*WorkItem[string], n)
	for i := range items {
		items[i] = NewWorkItem(fmt.Sprintf("item-%d", i), body(i))
	}
	return items
}

func byName(outcomes []Outcome[string]) map[string]Outcome[string] {
	m := make(map[string]Outcome[string], len(outcomes))
	for _, o := range outcomes {
		m[o.Name] = o
	}
	return m
}

type recordingMetrics struct {
	mu        sync.Mutex
	submitted map[string]int
	outcomes  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{submitted: map[string]int{}, outcomes: map[string]int{}}
}

func (m *recordingMetrics) ObserveSubmitted(pool string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted[pool]++
}

func (m *recordingMetrics) ObserveOutcome(pool, kind string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[pool+"/"+kind]++
}

// rejectingPool accepts tasks on an unbounded pool except for the listed
// submission indexes.
type rejectingPool struct {
	unboundedPool
	reject map[int]bool
	n      int
}

func (p *rejectingPool) submit(task func()) error {
	i := p.n
	p.n++
	if p.reject[i] {
		return errors.New(errors.ErrCodeSubmitRejected, "rejected for test")
	}
	return p.unboundedPool.submit(task)
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRun_EmptyInput(t *testing.T) {
	r := NewTaskRunner[string]()
	outcomes, stats := r.Run(context.Background(), nil, Fixed(2), time.Second)
	assert.Empty(t, outcomes)
	assert.Equal(t, RunStatistics{}, stats)
}

func TestRun_AllSucceedWithinDeadline(t *testing.T) {
	metrics := newRecordingMetrics()
	r := NewTaskRunner[string](WithMetrics(metrics))
	items := itemsOf(10, func(i int) InvokeFunc[string] { return sleeper(50*time.Millisecond, fmt.Sprint(i)) })

	outcomes, stats := r.Run(context.Background(), items, Fixed(3), 100*time.Millisecond)

	require.Len(t, outcomes, 10)
	assert.Equal(t, RunStatistics{Submitted: 10, Succeeded: 10}, stats)
	for i, o := range outcomes {
		assert.Equal(t, fmt.Sprintf("item-%d", i), o.Name, "outcomes follow submission order")
		assert.Equal(t, KindSuccess, o.Kind)
		assert.Equal(t, fmt.Sprint(i), o.Result)
		assert.True(t, o.OK())
	}
	for _, it := range items {
		assert.Equal(t, StateFinished, it.State())
	}
	assert.Equal(t, 10, metrics.submitted["fixed"])
	assert.Equal(t, 10, metrics.outcomes["fixed/success"])
}

func TestRun_RespectsConcurrencyLimit(t *testing.T) {
	var active, peak int32
	body := func(int) InvokeFunc[string] {
		return func(ctx context.Context) (string, error) {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return "ok", nil
		}
	}

	_, stats := NewTaskRunner[string]().Run(context.Background(), itemsOf(12, body), Fixed(2), time.Second)

	assert.Equal(t, 12, stats.Succeeded)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRun_TimeoutCancelsAndContinues(t *testing.T) {
	var sawCancel atomic.Bool
	slow := NewWorkItem("slow", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		sawCancel.Store(true)
		return "", ctx.Err()
	})
	fast := NewWorkItem("fast", sleeper(time.Millisecond, "fast"))

	outcomes, stats := NewTaskRunner[string]().Run(context.Background(),
		[]*WorkItem[string]{slow, fast}, Unbounded(), 20*time.Millisecond)

	got := byName(outcomes)
	require.Len(t, got, 2)
	assert.Equal(t, KindTimedOut, got["slow"].Kind)
	assert.True(t, errors.IsCode(got["slow"].Err, errors.ErrCodeTimeout))
	assert.Equal(t, KindSuccess, got["fast"].Kind)
	assert.Equal(t, RunStatistics{Submitted: 2, Succeeded: 1, Failed: 1, TimedOut: 1}, stats)
	assert.Eventually(t, sawCancel.Load, time.Second, 5*time.Millisecond, "timed-out item must see its context cancelled")
}

func TestRun_EachItemGetsFreshDeadline(t *testing.T) {
	// Three 30ms items run back to back on one worker. The last finishes
	// ~90ms into the pass, past a 60ms window measured from the start of the
	// pass but inside a 60ms window of its own.
	items := itemsOf(3, func(int) InvokeFunc[string] { return sleeper(30*time.Millisecond, "ok") })

	_, stats := NewTaskRunner[string]().Run(context.Background(), items, Fixed(1), 60*time.Millisecond)

	assert.Equal(t, 3, stats.Succeeded)
	assert.Zero(t, stats.TimedOut)
}

func TestRun_StarvedItemsStayNotStarted(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	items := itemsOf(5, func(i int) InvokeFunc[string] {
		if i == 0 {
			return stubborn(release)
		}
		return sleeper(time.Millisecond, "ok")
	})

	outcomes, stats := NewTaskRunner[string]().Run(context.Background(), items, Fixed(1), 10*time.Millisecond)

	require.Len(t, outcomes, 5)
	for _, o := range outcomes {
		assert.Equal(t, KindTimedOut, o.Kind, o.Name)
	}
	assert.Equal(t, RunStatistics{Submitted: 5, Failed: 5, TimedOut: 5}, stats)
	assert.Equal(t, StateStarted, items[0].State())
	for _, it := range items[1:] {
		assert.Equal(t, StateNotStarted, it.State(), it.Name())
	}
}

func TestRun_StarvedItemsAreSkippedAfterRelease(t *testing.T) {
	release := make(chan struct{})
	items := itemsOf(3, func(i int) InvokeFunc[string] {
		if i == 0 {
			return stubborn(release)
		}
		return sleeper(time.Millisecond, "ok")
	})

	NewTaskRunner[string]().Run(context.Background(), items, Fixed(1), 5*time.Millisecond)
	close(release)

	assert.Eventually(t, func() bool { return items[0].State() == StateFinished }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return items[1].Started() || items[2].Started() },
		50*time.Millisecond, 5*time.Millisecond, "a cancelled handle must not run once a worker frees up")
}

func TestRun_ExecutionFailureAndPanicAreIsolated(t *testing.T) {
	boom := stderrors.New("auth failed")
	items := []*WorkItem[string]{
		NewWorkItem("ok-1", sleeper(time.Millisecond, "a")),
		NewWorkItem("fails", func(context.Context) (string, error) { return "", boom }),
		NewWorkItem("panics", func(context.Context) (string, error) { panic("index out of range") }),
		NewWorkItem("ok-2", sleeper(time.Millisecond, "b")),
	}

	outcomes, stats := NewTaskRunner[string]().Run(context.Background(), items, Fixed(2), time.Second)

	got := byName(outcomes)
	require.Len(t, got, 4)
	assert.Equal(t, KindSuccess, got["ok-1"].Kind)
	assert.Equal(t, KindSuccess, got["ok-2"].Kind)
	assert.Equal(t, KindExecutionFailure, got["fails"].Kind)
	assert.ErrorIs(t, got["fails"].Err, boom)
	assert.Equal(t, KindExecutionFailure, got["panics"].Kind)
	assert.True(t, errors.IsCode(got["panics"].Err, errors.ErrCodeItemPanicked))
	assert.Equal(t, RunStatistics{Submitted: 4, Succeeded: 2, Failed: 2}, stats)
}

func TestRun_CancelledParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := itemsOf(4, func(int) InvokeFunc[string] { return sleeper(time.Millisecond, "ok") })
	outcomes, stats := NewTaskRunner[string]().Run(ctx, items, Fixed(2), time.Second)

	require.Len(t, outcomes, 4)
	for _, o := range outcomes {
		assert.Equal(t, KindCancelled, o.Kind, o.Name)
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
	assert.Equal(t, RunStatistics{Submitted: 4, Failed: 4}, stats)
	for _, it := range items {
		assert.Equal(t, StateNotStarted, it.State())
	}
}

func TestRun_ParentCancelledMidWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	items := []*WorkItem[string]{
		NewWorkItem("first", sleeper(time.Second, "slow")),
		NewWorkItem("second", sleeper(time.Second, "slow")),
	}
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	outcomes, stats := NewTaskRunner[string]().Run(ctx, items, Unbounded(), 5*time.Second)

	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Contains(t, []OutcomeKind{KindCancelled, KindExecutionFailure}, o.Kind)
	}
	assert.Equal(t, 2, stats.Failed)
	assert.Zero(t, stats.TimedOut)
}

func TestRun_SubmissionFailureCountsAsFailure(t *testing.T) {
	r := NewTaskRunner[string]()
	r.newPool = func(PoolPolicy, int) pool {
		return &rejectingPool{reject: map[int]bool{1: true}}
	}
	items := itemsOf(3, func(int) InvokeFunc[string] { return sleeper(time.Millisecond, "ok") })

	outcomes, stats := r.Run(context.Background(), items, Unbounded(), time.Second)

	assert.Len(t, outcomes, 2)
	assert.NotContains(t, byName(outcomes), "item-1")
	assert.Equal(t, RunStatistics{Submitted: 2, Succeeded: 2, Failed: 1}, stats)
	assert.Equal(t, StateNotStarted, items[1].State())
}

func TestRun_ReusedStarvedItemRunsInLaterPass(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	items := itemsOf(2, func(i int) InvokeFunc[string] {
		if i == 0 {
			return stubborn(release)
		}
		return sleeper(time.Millisecond, "second-pass")
	})
	r := NewTaskRunner[string]()

	_, first := r.Run(context.Background(), items, Fixed(1), 5*time.Millisecond)
	require.Equal(t, StateNotStarted, items[1].State())

	outcomes, second := r.Run(context.Background(), items[1:], Unbounded(), time.Second)

	assert.Equal(t, 2, first.TimedOut)
	require.Len(t, outcomes, 1)
	assert.Equal(t, KindSuccess, outcomes[0].Kind)
	assert.Equal(t, "second-pass", outcomes[0].Result)
	assert.Equal(t, RunStatistics{Submitted: 1, Succeeded: 1}, second)
}

func TestRun_FinishedItemIsNotRunTwice(t *testing.T) {
	var calls atomic.Int32
	item := NewWorkItem("once", func(context.Context) (string, error) {
		calls.Add(1)
		return "ok", nil
	})
	r := NewTaskRunner[string]()

	r.Run(context.Background(), []*WorkItem[string]{item}, Fixed(1), time.Second)
	outcomes, _ := r.Run(context.Background(), []*WorkItem[string]{item}, Fixed(1), time.Second)

	require.Len(t, outcomes, 1)
	assert.Equal(t, KindExecutionFailure, outcomes[0].Kind)
	assert.True(t, errors.IsCode(outcomes[0].Err, errors.ErrCodeItemReentered))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRun_ConcurrentCallersHaveIndependentStats(t *testing.T) {
	r := NewTaskRunner[string]()
	var wg sync.WaitGroup
	results := make([]RunStatistics, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items := itemsOf(i+1, func(int) InvokeFunc[string] { return sleeper(time.Millisecond, "ok") })
			_, results[i] = r.Run(context.Background(), items, Fixed(2), time.Second)
		}(i)
	}
	wg.Wait()

	for i, s := range results {
		assert.Equal(t, RunStatistics{Submitted: i + 1, Succeeded: i + 1}, s)
	}
}

func TestRun_NonPositiveDeadlineUsesDefault(t *testing.T) {
	items := itemsOf(1, func(int) InvokeFunc[string] { return sleeper(5*time.Millisecond, "ok") })
	_, stats := NewTaskRunner[string]().Run(context.Background(), items, Fixed(1), 0)
	assert.Equal(t, 1, stats.Succeeded)
}

//Personal.AI order the ending
