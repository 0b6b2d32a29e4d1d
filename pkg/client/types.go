package client

import (
	"strings"
	"time"
)

// Status values reported per dimension.
const (
	StatusOK          = "ok"
	StatusDegraded    = "degraded"
	StatusUnavailable = "unavailable"
)

var severity = map[string]int{StatusOK: 0, StatusDegraded: 1, StatusUnavailable: 2}

// worse returns the more severe status. Unknown values count as unavailable.
func worse(a, b string) string {
	sa, ok := severity[a]
	if !ok {
		return StatusUnavailable
	}
	sb, ok := severity[b]
	if !ok {
		return StatusUnavailable
	}
	if sb > sa {
		return b
	}
	return a
}

// Connector is one entry of the connector list.
type Connector struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// ConnectorHealth is the result for one requested connector.
type ConnectorHealth struct {
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	Connectivity string    `json:"connectivity"`
	Primary      string    `json:"primary"`
	Secondary    string    `json:"secondary"`
	Detail       string    `json:"detail,omitempty"`
	Fallback     bool      `json:"fallback"`
	Reason       string    `json:"reason,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
	LatencyNS    int64     `json:"latency_ns"`
}

// Overall is the worst of the three dimensions.
func (h ConnectorHealth) Overall() string {
	return worse(worse(h.Connectivity, h.Primary), h.Secondary)
}

// Latency of the probe.
func (h ConnectorHealth) Latency() time.Duration { return time.Duration(h.LatencyNS) }

// PassStatistics counts outcomes of one engine pass.
type PassStatistics struct {
	Submitted int `json:"submitted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	TimedOut  int `json:"timed_out"`
}

// Report is one batch. Results and Outcomes follow Requested.
type Report struct {
	BatchID     string            `json:"batch_id"`
	Requested   []string          `json:"requested"`
	Results     []ConnectorHealth `json:"results"`
	Count       int               `json:"count"`
	Outcomes    []string          `json:"outcomes"`
	Pass1       PassStatistics    `json:"pass1"`
	Pass2       PassStatistics    `json:"pass2"`
	Passes      int               `json:"passes"`
	Resubmitted []string          `json:"resubmitted,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
}

// Lookup finds a result by name, ignoring case.
func (r *Report) Lookup(name string) (ConnectorHealth, bool) {
	if r == nil {
		return ConnectorHealth{}, false
	}
	for _, h := range r.Results {
		if strings.EqualFold(strings.TrimSpace(h.Name), strings.TrimSpace(name)) {
			return h, true
		}
	}
	return ConnectorHealth{}, false
}

// Summary counts overall statuses.
type Summary struct {
	Total       int    `json:"total"`
	OK          int    `json:"ok"`
	Degraded    int    `json:"degraded"`
	Unavailable int    `json:"unavailable"`
	Fallbacks   int    `json:"fallbacks"`
	Overall     string `json:"overall"`
}

// CheckResult is returned by Check and Latest.
type CheckResult struct {
	Summary Summary `json:"summary"`
	Report  *Report `json:"report"`
}

// Liveness is the body of /healthz.
type Liveness struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// Readiness is the body of /readyz. Ready is derived from the HTTP status.
type Readiness struct {
	Ready     bool       `json:"-"`
	Status    string     `json:"status"`
	BatchID   string     `json:"batch_id,omitempty"`
	CheckedAt *time.Time `json:"checked_at,omitempty"`
	Summary   *Summary   `json:"summary,omitempty"`
}

//Personal.AI order the ending
