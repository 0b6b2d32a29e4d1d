package engine

import "fmt"

// RunStatistics holds the counters of a single Run call.
type RunStatistics struct {
	Submitted int `json:"submitted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	TimedOut  int `json:"timed_out"` // also counted in Failed
}

// Resolved is the number of handles accounted for.
func (s RunStatistics) Resolved() int { return s.Succeeded + s.Failed }

// Add returns the element-wise sum of s and o.
func (s RunStatistics) Add(o RunStatistics) RunStatistics {
	return RunStatistics{
		Submitted: s.Submitted + o.Submitted,
		Succeeded: s.Succeeded + o.Succeeded,
		Failed:    s.Failed + o.Failed,
		TimedOut:  s.TimedOut + o.TimedOut,
	}
}

func (s RunStatistics) String() string {
	return fmt.Sprintf("submitted=%d succeeded=%d failed=%d timed_out=%d",
		s.Submitted, s.Succeeded, s.Failed, s.TimedOut)
}

//Personal.AI order the ending
