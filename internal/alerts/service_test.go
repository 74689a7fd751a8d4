package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
)

type fakeReader struct {
	products map[string][]inventory.Product
	failFor  string
}

func (f fakeReader) Snapshot(_ context.Context, userID string) ([]inventory.Product, error) {
	if userID == f.failFor {
		return nil, errors.New("boom")
	}
	return f.products[userID], nil
}

func (f fakeReader) ListUsers(context.Context) ([]string, error) {
	return []string{"broken", "healthy", "u1"}, nil
}

type countingRecorder struct{ calls int }

func (c *countingRecorder) ObserveAlerts(Set) { c.calls++ }

func newFakeReader() fakeReader {
	return fakeReader{
		failFor: "broken",
		products: map[string][]inventory.Product{
			"u1":      {{ID: "a", Quantity: 0}, {ID: "b", Quantity: 2}},
			"healthy": {{ID: "c", Quantity: 90}},
		},
	}
}

func TestServiceReport(t *testing.T) {
	svc := NewService(newFakeReader(), newTestEvaluator(), nil)
	report, err := svc.Report(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 2, report.Alerts.Total)
	require.Equal(t, []string{"1 product out of stock", "1 product low on stock"}, report.Messages)
}

func TestServiceScanSkipsFailuresAndHealthyUsers(t *testing.T) {
	reader := newFakeReader()
	svc := NewService(reader, newTestEvaluator(), nil)
	rec := &countingRecorder{}

	reports, err := svc.Scan(context.Background(), reader, rec)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, "u1", reports[0].UserID)
	require.Equal(t, 2, rec.calls)
}

func TestHandlerReport(t *testing.T) {
	h := NewHandler(nil, NewService(newFakeReader(), newTestEvaluator(), nil))
	r := chi.NewRouter()
	r.Route("/users/{userID}", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u1/inventory/alerts", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Alerts.OutOfStock, 1)
	require.Equal(t, "a", report.Alerts.OutOfStock[0].ID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/broken/inventory/alerts", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
