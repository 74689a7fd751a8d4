package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/odyssey-erp/odyssey-stock/internal/dates"
	"github.com/odyssey-erp/odyssey-stock/internal/importer"
	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
)

// ImportMode enumerates supported execution strategies.
type ImportMode string

const (
	// ImportModeDry validates entries without writing them.
	ImportModeDry ImportMode = "dry"
	// ImportModeApply writes entries after confirmation.
	ImportModeApply ImportMode = "apply"
)

// ImportOptions configures the import command execution.
type ImportOptions struct {
	UserID     string
	Source     string
	Mode       ImportMode
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
	Stdin      io.Reader
	Confirm    func(io.Reader, io.Writer) (bool, error)
}

// ImportSummary captures the structured reporting outcome.
type ImportSummary struct {
	UserID string          `json:"userId"`
	Mode   ImportMode      `json:"mode"`
	Source string          `json:"source"`
	Result importer.Result `json:"result"`
}

// ImportCLI reconciles a local JSON export into a user's products.
type ImportCLI struct {
	writer importer.Writer
	rules  dates.Rules
}

// NewImportCLI constructs the helper around the product writer.
func NewImportCLI(writer importer.Writer, rules dates.Rules) *ImportCLI {
	return &ImportCLI{writer: writer, rules: rules}
}

type discardWriter struct{}

func (discardWriter) WriteAt(context.Context, string, string, inventory.Product) error { return nil }

// ImportCommand executes the import workflow and returns the process exit
// code: 0 on a clean import, 10 when some entries failed, 1 otherwise.
func (c *ImportCLI) ImportCommand(ctx context.Context, opts ImportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Mode == "" {
		opts.Mode = ImportModeDry
	}
	mode := ImportMode(strings.ToLower(string(opts.Mode)))
	switch mode {
	case ImportModeDry, ImportModeApply:
	default:
		fmt.Fprintf(opts.Stderr, "import: invalid mode %q (expected dry or apply)\n", opts.Mode)
		return 1
	}
	userID := strings.TrimSpace(opts.UserID)
	if userID == "" {
		fmt.Fprintln(opts.Stderr, "import: --user is required")
		return 1
	}
	payload, err := readImportSource(ctx, opts)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "import: %v\n", err)
		return 1
	}
	entries, err := importer.DecodeEntries(payload)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "import: %v\n", err)
		return 1
	}

	var writer importer.Writer = discardWriter{}
	if mode == ImportModeApply {
		if c.writer == nil {
			fmt.Fprintln(opts.Stderr, "import: store not configured")
			return 1
		}
		confirm := opts.Confirm
		if confirm == nil {
			confirm = defaultImportConfirm
		}
		ok, err := confirm(opts.Stdin, opts.Stdout)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "import: confirmation failed: %v\n", err)
			return 1
		}
		if !ok {
			fmt.Fprintln(opts.Stderr, "import: cancelled by user")
			return 1
		}
		writer = c.writer
	}
	reconciler := importer.NewReconciler(writer, c.rules, nil, nil)
	summary := ImportSummary{
		UserID: userID,
		Mode:   mode,
		Source: opts.Source,
		Result: reconciler.Import(ctx, userID, entries),
	}
	if err := writeImportOutput(opts, summary); err != nil {
		fmt.Fprintf(opts.Stderr, "import: %v\n", err)
		return 1
	}
	if summary.Result.ErrorCount > 0 {
		return 10
	}
	return 0
}

func readImportSource(ctx context.Context, opts ImportOptions) ([]byte, error) {
	source := strings.TrimSpace(opts.Source)
	switch {
	case source == "":
		return nil, errors.New("--source is required")
	case source == "-":
		return io.ReadAll(opts.Stdin)
	default:
		return importer.FileSource{Path: source}.Fetch(ctx)
	}
}

func writeImportOutput(opts ImportOptions, summary ImportSummary) error {
	if opts.JSONOutput {
		return json.NewEncoder(opts.Stdout).Encode(summary)
	}
	renderImportHuman(opts.Stdout, summary)
	return nil
}

func renderImportHuman(out io.Writer, summary ImportSummary) {
	fmt.Fprintf(out, "Import (%s) for %s from %s\n", summary.Mode, summary.UserID, summary.Source)
	fmt.Fprintf(out, "%d written, %d failed\n", summary.Result.SuccessCount, summary.Result.ErrorCount)
	for _, o := range summary.Result.Outcomes {
		if o.OK {
			continue
		}
		fmt.Fprintf(out, " - entry %d (%s): %s: %v\n", o.Index, o.Key, o.Kind, o.Err)
	}
}

func defaultImportConfirm(r io.Reader, w io.Writer) (bool, error) {
	fmt.Fprint(w, "Write imported products? Type YES to confirm: ")
	reader := bufio.NewReader(r)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(line), "YES"), nil
}
