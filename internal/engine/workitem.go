package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/turtacn/connprobe/pkg/errors"
)

// ---------------------------------------------------------------------------
// State
// ---------------------------------------------------------------------------

// State is the lifecycle position of a WorkItem.
type State int32

const (
	StateNotStarted State = iota // accepted by a pool at most, body not entered
	StateStarted                 // a worker has entered the body
	StateFinished                // the body returned or panicked
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateStarted:
		return "started"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// ---------------------------------------------------------------------------
// WorkItem
// ---------------------------------------------------------------------------

// InvokeFunc is the body of a WorkItem. It must return promptly once ctx is
// done; the engine cannot stop a body that ignores its context.
type InvokeFunc[R any] func(ctx context.Context) (R, error)

// WorkItem is a named unit of work executed at most once. The same WorkItem
// may be handed to several Run calls; only the first worker to reach it runs
// the body.
type WorkItem[R any] struct {
	name   string
	invoke InvokeFunc[R]
	state  atomic.Int32
}

// NewWorkItem returns a WorkItem in StateNotStarted.
func NewWorkItem[R any](name string, fn InvokeFunc[R]) *WorkItem[R] {
	return &WorkItem[R]{name: name, invoke: fn}
}

// Name returns the identity of the item.
func (w *WorkItem[R]) Name() string { return w.name }

// State returns the current lifecycle state.
func (w *WorkItem[R]) State() State { return State(w.state.Load()) }

// Started reports whether a worker ever entered the body.
func (w *WorkItem[R]) Started() bool { return w.State() != StateNotStarted }

// execute runs the body if the item has not started yet. A panic in the body
// is recovered and returned as an ErrCodeItemPanicked error.
func (w *WorkItem[R]) execute(ctx context.Context) (res R, err error) {
	if !w.state.CompareAndSwap(int32(StateNotStarted), int32(StateStarted)) {
		return res, errors.Newf(errors.ErrCodeItemReentered, "work item %q already %s", w.name, w.State())
	}
	defer func() {
		if r := recover(); r != nil {
			var zero R
			res = zero
			err = errors.Newf(errors.ErrCodeItemPanicked, "work item %q panicked: %v", w.name, r)
		}
		w.state.Store(int32(StateFinished))
	}()
	if w.invoke == nil {
		return res, errors.Newf(errors.ErrCodeItemPanicked, "work item %q has no body", w.name)
	}
	return w.invoke(ctx)
}

//Personal.AI order the ending
