package engine

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/turtacn/connprobe/pkg/errors"
)

// ---------------------------------------------------------------------------
// PoolPolicy
// ---------------------------------------------------------------------------

type policyKind int

const (
	policyFixed policyKind = iota
	policyUnbounded
)

// PoolPolicy selects the worker pool a Run uses.
type PoolPolicy struct {
	kind policyKind
	size int
}

// Fixed returns a policy with n workers. n < 1 is raised to 1.
func Fixed(n int) PoolPolicy {
	if n < 1 {
		n = 1
	}
	return PoolPolicy{kind: policyFixed, size: n}
}

// Unbounded returns a policy that gives every task its own goroutine.
func Unbounded() PoolPolicy {
	return PoolPolicy{kind: policyUnbounded}
}

// IsUnbounded reports whether p has no worker cap.
func (p PoolPolicy) IsUnbounded() bool { return p.kind == policyUnbounded }

// Size returns the worker count, 0 for Unbounded.
func (p PoolPolicy) Size() int { return p.size }

// Label is the low-cardinality name used for metrics.
func (p PoolPolicy) Label() string {
	if p.IsUnbounded() {
		return "unbounded"
	}
	return "fixed"
}

func (p PoolPolicy) String() string {
	if p.IsUnbounded() {
		return "unbounded"
	}
	return fmt.Sprintf("fixed(%d)", p.size)
}

// DefaultConcurrency is one less than the number of CPUs, at least 1.
func DefaultConcurrency() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

// ---------------------------------------------------------------------------
// pools
// ---------------------------------------------------------------------------

var errPoolClosed = errors.New(errors.ErrCodeSubmitRejected, "pool is shut down")

// pool executes submitted tasks asynchronously. shutdown stops intake and
// returns without waiting for running tasks.
type pool interface {
	submit(task func()) error
	shutdown()
}

func newPool(policy PoolPolicy, capacity int) pool {
	if policy.IsUnbounded() {
		return &unboundedPool{}
	}
	return newFixedPool(policy.size, capacity)
}

// fixedPool runs tasks on a fixed set of workers fed by a buffered queue.
type fixedPool struct {
	mu     sync.Mutex
	closed bool
	tasks  chan func()
}

func newFixedPool(workers, capacity int) *fixedPool {
	if capacity < 1 {
		capacity = 1
	}
	p := &fixedPool{tasks: make(chan func(), capacity)}
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *fixedPool) work() {
	for task := range p.tasks {
		task()
	}
}

func (p *fixedPool) submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return errors.Newf(errors.ErrCodeSubmitRejected, "queue full (%d)", cap(p.tasks))
	}
}

// shutdown closes the queue. Workers drain what is left and exit.
func (p *fixedPool) shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
}

// unboundedPool starts one goroutine per task.
type unboundedPool struct {
	mu     sync.Mutex
	closed bool
}

func (p *unboundedPool) submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPoolClosed
	}
	go task()
	return nil
}

func (p *unboundedPool) shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

//Personal.AI order the ending
