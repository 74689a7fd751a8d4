package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-stock/internal/alerts"
	"github.com/odyssey-erp/odyssey-stock/internal/dates"
	"github.com/odyssey-erp/odyssey-stock/internal/importer"
	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
	"github.com/odyssey-erp/odyssey-stock/jobs"
)

const samplePayload = `[
	{"productCode":"A","name":"Tea","price":4.5,"quantity":3},
	{"productCode":"B","name":"Broken"},
	{"productCode":"C","name":"Rice","price":12}
]`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stock.json")
	require.NoError(t, os.WriteFile(path, []byte(samplePayload), 0o600))
	return path
}

func TestImportCommandDryRunWritesNothing(t *testing.T) {
	store := inventory.NewMemoryStore()
	var stdout, stderr bytes.Buffer
	code := NewImportCLI(store, dates.Rules{}).ImportCommand(context.Background(), ImportOptions{
		UserID:     "u1",
		Source:     writeSample(t),
		JSONOutput: true,
		Stdout:     &stdout,
		Stderr:     &stderr,
	})
	require.Equal(t, 10, code, stderr.String())

	var summary struct {
		Mode   string `json:"mode"`
		Result struct {
			SuccessCount int `json:"successCount"`
			ErrorCount   int `json:"errorCount"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.Equal(t, "dry", summary.Mode)
	require.Equal(t, 2, summary.Result.SuccessCount)
	require.Equal(t, 1, summary.Result.ErrorCount)

	products, err := store.ReadAll(context.Background(), "u1")
	require.NoError(t, err)
	require.Empty(t, products)
}

func TestImportCommandApplyFromStdin(t *testing.T) {
	store := inventory.NewMemoryStore()
	var stdout, stderr bytes.Buffer
	code := NewImportCLI(store, dates.Rules{}).ImportCommand(context.Background(), ImportOptions{
		UserID:  "u1",
		Source:  "-",
		Mode:    ImportModeApply,
		Stdout:  &stdout,
		Stderr:  &stderr,
		Stdin:   strings.NewReader(samplePayload),
		Confirm: func(io.Reader, io.Writer) (bool, error) { return true, nil },
	})
	require.Equal(t, 10, code)
	require.Contains(t, stdout.String(), "2 written, 1 failed")

	products, err := store.ReadAll(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, "A", products[0].ID)
	require.Equal(t, "C", products[1].ID)
}

func TestImportCommandCancelled(t *testing.T) {
	var stderr bytes.Buffer
	code := NewImportCLI(inventory.NewMemoryStore(), dates.Rules{}).ImportCommand(context.Background(), ImportOptions{
		UserID:  "u1",
		Source:  writeSample(t),
		Mode:    ImportModeApply,
		Stdout:  io.Discard,
		Stderr:  &stderr,
		Stdin:   strings.NewReader("no\n"),
	})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "cancelled")
}

func TestImportCommandRejectsBadInput(t *testing.T) {
	cli := NewImportCLI(inventory.NewMemoryStore(), dates.Rules{})
	cases := []ImportOptions{
		{UserID: "", Source: "x.json"},
		{UserID: "u1", Source: ""},
		{UserID: "u1", Source: "-", Mode: "bogus"},
		{UserID: "u1", Source: "-", Stdin: strings.NewReader(`{"a":1}`)},
	}
	for _, opts := range cases {
		var stderr bytes.Buffer
		opts.Stdout = io.Discard
		opts.Stderr = &stderr
		if opts.Stdin == nil {
			opts.Stdin = strings.NewReader("")
		}
		require.Equal(t, 1, cli.ImportCommand(context.Background(), opts))
		require.NotEmpty(t, stderr.String())
	}
}

type memoryReader struct{ store *inventory.MemoryStore }

func (r memoryReader) Snapshot(ctx context.Context, userID string) ([]inventory.Product, error) {
	return r.store.ReadAll(ctx, userID)
}

func TestAlertsCommand(t *testing.T) {
	ctx := context.Background()
	store := inventory.NewMemoryStore()
	require.NoError(t, store.WriteAt(ctx, "u1", "a", inventory.Product{Name: "Soap", Quantity: 0, LowStockThreshold: 10}))
	svc := alerts.NewService(memoryReader{store: store}, alerts.NewEvaluator(dates.Rules{}), nil)

	var stdout bytes.Buffer
	code := NewAlertsCLI(svc).AlertsCommand(ctx, AlertsOptions{UserID: "u1", Stdout: &stdout, Stderr: io.Discard})
	require.Equal(t, 10, code)
	require.Contains(t, stdout.String(), "1 product out of stock")

	stdout.Reset()
	code = NewAlertsCLI(svc).AlertsCommand(ctx, AlertsOptions{UserID: "nobody", Stdout: &stdout, Stderr: io.Discard})
	require.Equal(t, 0, code)
	require.Contains(t, stdout.String(), "No alerts")
}

func TestRunUsage(t *testing.T) {
	var stderr bytes.Buffer
	require.Equal(t, 2, Run(context.Background(), nil, Deps{Stderr: &stderr}))
	require.Contains(t, stderr.String(), "usage")
	require.Equal(t, 2, Run(context.Background(), []string{"unknown"}, Deps{Stderr: &stderr}))
}

func TestRunImportDispatch(t *testing.T) {
	store := inventory.NewMemoryStore()
	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"import", "--user", "u1", "--source", writeSample(t)}, Deps{
		Products: store,
		Stdout:   &stdout,
		Stderr:   io.Discard,
	})
	require.Equal(t, 10, code)
	require.Contains(t, stdout.String(), "Import (dry) for u1")
}

func TestBuildTask(t *testing.T) {
	task, err := buildTask("alert-scan", TriggerArgs{})
	require.NoError(t, err)
	require.Equal(t, jobs.TaskAlertScan, task.Type())

	task, err = buildTask("import", TriggerArgs{UserID: "u1", Link: "https://drive.google.com/file/d/abc123/view"})
	require.NoError(t, err)
	var payload jobs.ImportPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, "https://drive.google.com/uc?export=download&id=abc123", payload.URL)

	_, err = buildTask("import", TriggerArgs{UserID: "u1", Link: "http://10.0.0.1/stock.json"})
	require.Error(t, err)
	_, err = buildTask("import", TriggerArgs{UserID: "u1", Link: "http://10.0.0.1/stock.json", Links: importer.LinkPolicy{AllowedHosts: []string{"10.0.0.1"}}})
	require.NoError(t, err)

	_, err = buildTask("import", TriggerArgs{UserID: "u1"})
	require.Error(t, err)
	_, err = buildTask("nope", TriggerArgs{})
	require.Error(t, err)
}
