package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/connprobe/internal/application/healthcheck"
)

// ReportSource exposes the most recent batch.
type ReportSource interface {
	Latest() (*healthcheck.HealthReport, bool)
}

// HealthHandler serves the liveness and readiness probes of connprobe itself.
type HealthHandler struct {
	source  ReportSource
	version string
	startAt time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(version string, source ReportSource) *HealthHandler {
	return &HealthHandler{source: source, version: version, startAt: time.Now()}
}

// LivenessResponse is the response for liveness probe.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the response for readiness probe.
type ReadinessResponse struct {
	Status    string               `json:"status"`
	BatchID   string               `json:"batch_id,omitempty"`
	CheckedAt *time.Time           `json:"checked_at,omitempty"`
	Summary   *healthcheck.Summary `json:"summary,omitempty"`
}

// Liveness handles GET /healthz. It answers 200 while the process runs.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness handles GET /readyz. It answers 200 once a batch has finished
// with no unavailable connector, 503 otherwise.
func (h *HealthHandler) Readiness(c *gin.Context) {
	report, ok := h.source.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, ReadinessResponse{Status: "pending"})
		return
	}

	sum := healthcheck.Summarize(report)
	resp := ReadinessResponse{
		Status:    "ready",
		BatchID:   report.BatchID,
		CheckedAt: &report.FinishedAt,
		Summary:   &sum,
	}
	if !sum.Serving() {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

//Personal.AI order the ending
