package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/odyssey-erp/odyssey-stock/internal/alerts"
)

// AlertsOptions configures the alerts command execution.
type AlertsOptions struct {
	UserID     string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// AlertsCLI prints the alert report of one user.
type AlertsCLI struct {
	service *alerts.Service
}

// NewAlertsCLI constructs the helper.
func NewAlertsCLI(service *alerts.Service) *AlertsCLI {
	return &AlertsCLI{service: service}
}

// AlertsCommand evaluates alerts and returns 0 when the user has none, 10
// when alerts are pending and 1 on failure.
func (c *AlertsCLI) AlertsCommand(ctx context.Context, opts AlertsOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	userID := strings.TrimSpace(opts.UserID)
	if userID == "" {
		fmt.Fprintln(opts.Stderr, "alerts: --user is required")
		return 1
	}
	report, err := c.service.Report(ctx, userID)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "alerts: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(report); err != nil {
			fmt.Fprintf(opts.Stderr, "alerts: %v\n", err)
			return 1
		}
	} else {
		renderAlertsHuman(opts.Stdout, report)
	}
	if report.Alerts.Empty() {
		return 0
	}
	return 10
}

func renderAlertsHuman(out io.Writer, report alerts.Report) {
	if report.Alerts.Empty() {
		fmt.Fprintf(out, "No alerts for %s.\n", report.UserID)
		return
	}
	fmt.Fprintf(out, "%d alert(s) for %s:\n", report.Alerts.Total, report.UserID)
	for _, msg := range report.Messages {
		fmt.Fprintf(out, " - %s\n", msg)
	}
}
