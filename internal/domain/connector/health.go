// Package connector defines the health vocabulary shared by every probe: the
// per-dimension Status scale, the Health record reported for one connector,
// and the Connector/Session contracts that concrete drivers implement.
package connector

import (
	"strings"
	"time"

	"github.com/turtacn/connprobe/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Status
// ─────────────────────────────────────────────────────────────────────────────

// Status is the classification of one health dimension.
type Status string

const (
	StatusOK          Status = "ok"
	StatusDegraded    Status = "degraded"
	StatusUnavailable Status = "unavailable"
)

// severity orders statuses from best to worst.
func (s Status) severity() int {
	switch s {
	case StatusOK:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Worse returns the worse of s and o.
func (s Status) Worse(o Status) Status {
	if o.severity() > s.severity() {
		return o
	}
	return s
}

// Classify maps a phase error to a Status. nil is ok, an error carrying
// ErrCodeProbeDegraded is degraded, anything else is unavailable.
func Classify(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.IsCode(err, errors.ErrCodeProbeDegraded):
		return StatusDegraded
	default:
		return StatusUnavailable
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Fallback reasons
// ─────────────────────────────────────────────────────────────────────────────

// Reasons attached to fallback records. They match the engine outcome names.
const (
	ReasonTimedOut         = "timed_out"
	ReasonCancelled        = "cancelled"
	ReasonNeverStarted     = "never_started"
	ReasonExecutionFailure = "execution_failure"
)

// ─────────────────────────────────────────────────────────────────────────────
// Health
// ─────────────────────────────────────────────────────────────────────────────

// Health is the report for one connector.
type Health struct {
	Name         string        `json:"name"`
	Kind         Kind          `json:"kind"`
	Connectivity Status        `json:"connectivity"`
	Primary      Status        `json:"primary"`
	Secondary    Status        `json:"secondary"`
	Detail       string        `json:"detail,omitempty"`
	Fallback     bool          `json:"fallback"`
	Reason       string        `json:"reason,omitempty"`
	CheckedAt    time.Time     `json:"checked_at"`
	Latency      time.Duration `json:"latency_ns"`
}

// Overall is the worst status across the three dimensions.
func (h Health) Overall() Status {
	return h.Connectivity.Worse(h.Primary).Worse(h.Secondary)
}

// Unavailable builds the fallback record for a connector that produced no
// usable result. Every dimension is unavailable.
func Unavailable(name string, kind Kind, reason, detail string, at time.Time) Health {
	return Health{
		Name:         name,
		Kind:         kind,
		Connectivity: StatusUnavailable,
		Primary:      StatusUnavailable,
		Secondary:    StatusUnavailable,
		Detail:       detail,
		Fallback:     true,
		Reason:       reason,
		CheckedAt:    at,
	}
}

// SameName compares connector names the way batches do, ignoring case and
// surrounding space.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// NormalizeName is the map key form of a connector name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

//Personal.AI order the ending
