package healthcheck

import (
	"context"
	"time"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/internal/infrastructure/monitoring/logging"
)

type phase struct {
	name string
	run  func(context.Context) error
	dst  *connector.Status
}

// Probe opens a session on c, runs its three phases in order and classifies
// each one. A failed connectivity phase marks the deeper phases unavailable
// without running them. The session is closed on every path.
//
// Probe returns an error only when ctx ends mid-probe; endpoint failures are
// part of the returned Health.
func Probe(ctx context.Context, c connector.Connector, now func() time.Time, log logging.Logger) (connector.Health, error) {
	start := now()
	h := connector.Health{
		Name:         c.Name(),
		Kind:         c.Kind(),
		Connectivity: connector.StatusUnavailable,
		Primary:      connector.StatusUnavailable,
		Secondary:    connector.StatusUnavailable,
		CheckedAt:    start,
	}

	sess, err := c.Open(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return h, ctxErr
		}
		h.Detail = "open: " + err.Error()
		h.Latency = now().Sub(start)
		return h, nil
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Debug("session close failed", logging.Item(h.Name), logging.Err(cerr))
		}
	}()

	phases := []phase{
		{"connectivity", sess.Connectivity, &h.Connectivity},
		{"primary", sess.Primary, &h.Primary},
		{"secondary", sess.Secondary, &h.Secondary},
	}
	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			return h, err
		}
		perr := p.run(ctx)
		*p.dst = connector.Classify(perr)
		if perr != nil && h.Detail == "" {
			h.Detail = p.name + ": " + perr.Error()
		}
		if p.name == "connectivity" && *p.dst == connector.StatusUnavailable {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return h, err
	}
	h.Latency = now().Sub(start)
	return h, nil
}

//Personal.AI order the ending
