package engine

import (
	"fmt"
	"time"
)

// OutcomeKind classifies how a work item left a pass.
type OutcomeKind int

const (
	KindSuccess          OutcomeKind = iota // body returned without error
	KindTimedOut                            // deadline elapsed while waiting
	KindCancelled                           // handle was cancelled before it resolved
	KindNeverStarted                        // no worker ever entered the body
	KindExecutionFailure                    // body returned an error or panicked
)

// String returns the snake_case name used in logs, metrics and reports.
func (k OutcomeKind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindTimedOut:
		return "timed_out"
	case KindCancelled:
		return "cancelled"
	case KindNeverStarted:
		return "never_started"
	case KindExecutionFailure:
		return "execution_failure"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// MarshalText lets OutcomeKind render as its name in JSON and YAML.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a name produced by MarshalText.
func (k *OutcomeKind) UnmarshalText(b []byte) error {
	for c := KindSuccess; c <= KindExecutionFailure; c++ {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("engine: unknown outcome kind %q", b)
}

// Outcome is the final word on one item within one pass.
type Outcome[R any] struct {
	Name   string
	Kind   OutcomeKind
	Result R     // meaningful only for KindSuccess
	Err    error // set for KindExecutionFailure, and the context error for KindCancelled

	// Elapsed is the body's run time when the handle resolved, otherwise the
	// time spent waiting on it.
	Elapsed time.Duration
}

// OK reports whether the outcome carries a real result.
func (o Outcome[R]) OK() bool { return o.Kind == KindSuccess }

// NeverStartedOutcome builds the outcome for an item no worker ever reached.
// The runner does not produce it; callers infer it from WorkItem state.
func NeverStartedOutcome[R any](name string) Outcome[R] {
	return Outcome[R]{Name: name, Kind: KindNeverStarted}
}

//Personal.AI order the ending
