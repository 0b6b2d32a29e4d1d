package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/connprobe/internal/application/healthcheck"
	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/pkg/errors"
)

// Accepted values of --fail-on.
const (
	failOnUnavailable = "unavailable"
	failOnDegraded    = "degraded"
	failOnNever       = "never"
)

type checkOptions struct {
	failOn string
}

func newCheckCmd() *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check [connector...]",
		Short: "Run one health-check batch",
		Long: "Probe the named connectors, or every configured connector when none\n" +
			"are given, and print one row per requested name. Names match\n" +
			"case-insensitively; unknown names are reported as unavailable.",
		Example: "  connprobe check\n  connprobe check pg-main cache -o json\n  connprobe check --fail-on degraded",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.failOn, "fail-on", failOnUnavailable,
		"exit non-zero when a connector is at least this bad (unavailable, degraded, never)")
	return cmd
}

func runCheck(cmd *cobra.Command, names []string, opts *checkOptions) error {
	failOn := strings.ToLower(strings.TrimSpace(opts.failOn))
	switch failOn {
	case failOnUnavailable, failOnDegraded, failOnNever:
	default:
		return errors.InvalidParam("unsupported --fail-on value").WithDetail(opts.failOn)
	}

	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if len(cliCtx.Config.Connectors) == 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "no connectors configured")
	}

	svc, err := cliCtx.newService(nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if cliCtx.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cliCtx.Timeout)
		defer cancel()
	}

	report, err := svc.Check(ctx, names)
	if err != nil {
		return err
	}

	view := newReportView(report)
	if err := PrintResult(cmd, view); err != nil {
		return err
	}
	return failOnError(view.Summary, failOn)
}

// failOnError returns an ErrCodeServiceUnavailable error when the summary
// crosses the --fail-on threshold.
func failOnError(s healthcheck.Summary, failOn string) error {
	switch failOn {
	case failOnNever:
		return nil
	case failOnDegraded:
		if s.Unavailable+s.Degraded > 0 {
			return errors.Newf(errors.ErrCodeServiceUnavailable,
				"%d connector(s) unavailable, %d degraded", s.Unavailable, s.Degraded)
		}
	default:
		if s.Unavailable > 0 {
			return errors.Newf(errors.ErrCodeServiceUnavailable,
				"%d connector(s) unavailable", s.Unavailable)
		}
	}
	return nil
}

// reportView renders a HealthReport for every output format.
type reportView struct {
	Summary healthcheck.Summary       `json:"summary"`
	Report  *healthcheck.HealthReport `json:"report"`
}

func newReportView(r *healthcheck.HealthReport) reportView {
	return reportView{Summary: healthcheck.Summarize(r), Report: r}
}

// RenderTable draws one row per connector followed by the summary line.
func (v reportView) RenderTable() (string, error) {
	var buf strings.Builder

	table := tablewriter.NewWriter(&buf)
	table.Header("NAME", "KIND", "OVERALL", "CONNECTIVITY", "PRIMARY", "SECONDARY", "LATENCY", "DETAIL")
	for _, h := range v.Report.Results {
		row := []string{
			h.Name,
			kindLabel(h.Kind),
			string(h.Overall()),
			string(h.Connectivity),
			string(h.Primary),
			string(h.Secondary),
			formatLatency(h),
			truncateString(detailOf(h), 60),
		}
		if err := table.Append(row); err != nil {
			return "", err
		}
	}
	if err := table.Render(); err != nil {
		return "", err
	}

	s := v.Summary
	fmt.Fprintf(&buf, "\noverall: %s (%d ok, %d degraded, %d unavailable, %d passes)\n",
		s.Overall, s.OK, s.Degraded, s.Unavailable, v.Report.Passes)
	fmt.Fprintf(&buf, "batch: %s\n", v.Report.BatchID)
	return buf.String(), nil
}

func (v reportView) String() string {
	var sb strings.Builder
	for _, h := range v.Report.Results {
		fmt.Fprintf(&sb, "%s (%s): %s", h.Name, kindLabel(h.Kind), h.Overall())
		if d := detailOf(h); d != "" {
			fmt.Fprintf(&sb, " - %s", d)
		}
		sb.WriteString("\n")
	}
	s := v.Summary
	fmt.Fprintf(&sb, "overall: %s (%d ok, %d degraded, %d unavailable, %d passes)\n",
		s.Overall, s.OK, s.Degraded, s.Unavailable, v.Report.Passes)
	return sb.String()
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func kindLabel(k connector.Kind) string {
	if k == "" {
		return "-"
	}
	return string(k)
}

func formatLatency(h connector.Health) string {
	if h.Fallback || h.Latency <= 0 {
		return "-"
	}
	return h.Latency.Round(time.Microsecond).String()
}

func detailOf(h connector.Health) string {
	if h.Fallback && h.Reason != "" {
		if h.Detail == "" {
			return h.Reason
		}
		return h.Reason + ": " + h.Detail
	}
	return h.Detail
}

//Personal.AI order the ending
