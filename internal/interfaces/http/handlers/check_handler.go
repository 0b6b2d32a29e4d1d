package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/connprobe/internal/application/healthcheck"
	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/pkg/errors"
)

// CheckService is the slice of healthcheck.Service the handlers use.
type CheckService interface {
	Check(ctx context.Context, names []string) (*healthcheck.HealthReport, error)
	Latest() (*healthcheck.HealthReport, bool)
	Connectors() []connector.Connector
}

// CheckHandler runs batches on demand and serves their reports.
type CheckHandler struct {
	svc     CheckService
	timeout time.Duration
}

// NewCheckHandler creates a CheckHandler. timeout bounds one POST /v1/checks;
// zero leaves only the request context.
func NewCheckHandler(svc CheckService, timeout time.Duration) *CheckHandler {
	return &CheckHandler{svc: svc, timeout: timeout}
}

// CheckRequest is the body of POST /v1/checks. An empty list checks every
// configured connector.
type CheckRequest struct {
	Connectors []string `json:"connectors"`
}

// CheckResponse pairs a report with its summary.
type CheckResponse struct {
	Summary healthcheck.Summary       `json:"summary"`
	Report  *healthcheck.HealthReport `json:"report"`
}

// ConnectorView is one entry of GET /v1/connectors.
type ConnectorView struct {
	Name string         `json:"name"`
	Kind connector.Kind `json:"kind"`
}

// ListConnectors handles GET /v1/connectors.
func (h *CheckHandler) ListConnectors(c *gin.Context) {
	conns := h.svc.Connectors()
	out := make([]ConnectorView, 0, len(conns))
	for _, conn := range conns {
		out = append(out, ConnectorView{Name: conn.Name(), Kind: conn.Kind()})
	}
	c.JSON(http.StatusOK, gin.H{"connectors": out})
}

// RunCheck handles POST /v1/checks.
func (h *CheckHandler) RunCheck(c *gin.Context) {
	var req CheckRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			writeAppError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
			return
		}
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	report, err := h.svc.Check(ctx, req.Connectors)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, CheckResponse{Summary: healthcheck.Summarize(report), Report: report})
}

// Latest handles GET /v1/checks/latest.
func (h *CheckHandler) Latest(c *gin.Context) {
	report, ok := h.svc.Latest()
	if !ok {
		writeAppError(c, errors.NotFound("no batch has run yet"))
		return
	}
	c.JSON(http.StatusOK, CheckResponse{Summary: healthcheck.Summarize(report), Report: report})
}

//Personal.AI order the ending
