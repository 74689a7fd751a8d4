package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-stock/internal/alerts"
	"github.com/odyssey-erp/odyssey-stock/internal/dates"
	"github.com/odyssey-erp/odyssey-stock/internal/importer"
)

// Deps carries what the subcommands operate on.
type Deps struct {
	Products importer.Writer
	Alerts   *alerts.Service
	Rules    dates.Rules
	Redis    asynq.RedisClientOpt
	Links    importer.LinkPolicy
	Stdout   io.Writer
	Stderr   io.Writer
	Stdin    io.Reader
}

const usage = `usage:
  odyssey import --user ID --source FILE|- [--mode dry|apply] [--json]
  odyssey alerts --user ID [--json]
  odyssey jobs trigger alert-scan|import [--user ID --link URL]
  odyssey jobs stats`

// Run dispatches args to a subcommand and returns the exit code.
func Run(ctx context.Context, args []string, deps Deps) int {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if len(args) == 0 {
		fmt.Fprintln(deps.Stderr, usage)
		return 2
	}
	switch args[0] {
	case "import":
		fs := flag.NewFlagSet("import", flag.ContinueOnError)
		fs.SetOutput(deps.Stderr)
		user := fs.String("user", "", "target user id")
		source := fs.String("source", "", "JSON file, or - for stdin")
		mode := fs.String("mode", string(ImportModeDry), "dry or apply")
		asJSON := fs.Bool("json", false, "emit JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		return NewImportCLI(deps.Products, deps.Rules).ImportCommand(ctx, ImportOptions{
			UserID:     *user,
			Source:     *source,
			Mode:       ImportMode(*mode),
			JSONOutput: *asJSON,
			Stdout:     deps.Stdout,
			Stderr:     deps.Stderr,
			Stdin:      deps.Stdin,
		})
	case "alerts":
		fs := flag.NewFlagSet("alerts", flag.ContinueOnError)
		fs.SetOutput(deps.Stderr)
		user := fs.String("user", "", "user id")
		asJSON := fs.Bool("json", false, "emit JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if deps.Alerts == nil {
			fmt.Fprintln(deps.Stderr, "alerts: service not configured")
			return 1
		}
		return NewAlertsCLI(deps.Alerts).AlertsCommand(ctx, AlertsOptions{
			UserID:     *user,
			JSONOutput: *asJSON,
			Stdout:     deps.Stdout,
			Stderr:     deps.Stderr,
		})
	case "jobs":
		return runJobs(ctx, args[1:], deps)
	default:
		fmt.Fprintln(deps.Stderr, usage)
		return 2
	}
}

func runJobs(ctx context.Context, args []string, deps Deps) int {
	if len(args) == 0 {
		fmt.Fprintln(deps.Stderr, usage)
		return 2
	}
	jobsCLI, err := NewJobsCLI(deps.Redis)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "jobs: %v\n", err)
		return 1
	}
	defer jobsCLI.Close()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(deps.Stderr, usage)
			return 2
		}
		fs := flag.NewFlagSet("trigger", flag.ContinueOnError)
		fs.SetOutput(deps.Stderr)
		user := fs.String("user", "", "user id")
		link := fs.String("link", "", "download link")
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		info, err := jobsCLI.Trigger(ctx, args[1], TriggerArgs{UserID: *user, Link: *link, Links: deps.Links})
		if err != nil {
			fmt.Fprintf(deps.Stderr, "jobs: %v\n", err)
			return 1
		}
		fmt.Fprintf(deps.Stdout, "enqueued %s as %s\n", info.Type, info.ID)
		return 0
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "jobs: %v\n", err)
			return 1
		}
		fmt.Fprintf(deps.Stdout, "queue %s: pending %d, active %d, scheduled %d, retry %d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return 0
	default:
		fmt.Fprintln(deps.Stderr, usage)
		return 2
	}
}
